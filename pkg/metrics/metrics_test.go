package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New("lab_test")

	m.RecordTransition("FORWARD", "design")
	m.RecordTransition("FORWARD", "design")
	m.RecordTimerToggle(true)
	m.RecordConflict()
	m.RecordEventDispatch("lab.stage.transitioned", false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StageTransitions.WithLabelValues("FORWARD", "design")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TimerToggles.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("lab.stage.transitioned", "failed")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lab_test_stage_transitions_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTransition("FORWARD", "qa")
		m.RecordTimerToggle(false)
		m.RecordPauseAction("approve")
		m.RecordConflict()
		m.RecordOrderRegistered("urgent")
		m.RecordHTTPRequest("GET", "/", 200, time.Second)
		m.RecordEventDispatch("x", true, 0)
	})
}
