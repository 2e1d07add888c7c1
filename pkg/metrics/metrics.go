package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - метрики сервиса. Методы безопасно вызывать на nil.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OrdersRegistered  *prometheus.CounterVec
	StageTransitions  *prometheus.CounterVec
	TimerToggles      *prometheus.CounterVec
	PauseActions      *prometheus.CounterVec
	VersionConflicts  prometheus.Counter
	EventsDispatched  *prometheus.CounterVec
	EventDispatchTime *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Количество HTTP-запросов"},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
	m.OrdersRegistered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "orders_registered_total", Help: "Принятые заказы"},
		[]string{"priority"},
	)
	m.StageTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "stage_transitions_total", Help: "Смены этапов"},
		[]string{"kind", "to_stage"},
	)
	m.TimerToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "timer_toggles_total", Help: "Переключения таймера"},
		[]string{"state"},
	)
	m.PauseActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "pause_actions_total", Help: "Действия с паузами"},
		[]string{"action"},
	)
	m.VersionConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "version_conflicts_total", Help: "Конфликты версий заказа"},
	)
	m.EventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_dispatched_total", Help: "Доставка событий слушателям"},
		[]string{"event", "status"},
	)
	m.EventDispatchTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "event_dispatch_duration_seconds", Help: "Время обработки события", Buckets: prometheus.DefBuckets},
		[]string{"event"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
		m.OrdersRegistered, m.StageTransitions, m.TimerToggles, m.PauseActions,
		m.VersionConflicts, m.EventsDispatched, m.EventDispatchTime,
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}


func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordOrderRegistered(priority string) {
	if m == nil {
		return
	}
	m.OrdersRegistered.WithLabelValues(priority).Inc()
}

func (m *Metrics) RecordTransition(kind, toStage string) {
	if m == nil {
		return
	}
	m.StageTransitions.WithLabelValues(kind, toStage).Inc()
}

func (m *Metrics) RecordTimerToggle(running bool) {
	if m == nil {
		return
	}
	state := "stopped"
	if running {
		state = "running"
	}
	m.TimerToggles.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordPauseAction(action string) {
	if m == nil {
		return
	}
	m.PauseActions.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordConflict() {
	if m == nil {
		return
	}
	m.VersionConflicts.Inc()
}

func (m *Metrics) RecordEventDispatch(event string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "failed"
	}
	m.EventsDispatched.WithLabelValues(event, status).Inc()
	m.EventDispatchTime.WithLabelValues(event).Observe(duration.Seconds())
}
