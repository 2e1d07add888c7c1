package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event представляет собой любое событие в системе.
type Event interface {
	Name() string
}

// Listener - обработчик события.
type Listener func(ctx context.Context, event Event) error

// Observer получает итог обработки события одним слушателем (для метрик).
type Observer func(eventName string, err error, duration time.Duration)

type Option func(*Bus)

// WithRetry - сколько раз вызывать упавший слушатель и пауза между попытками.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(b *Bus) {
		if attempts > 0 {
			b.attempts = attempts
		}
		if delay >= 0 {
			b.delay = delay
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(b *Bus) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

func WithObserver(o Observer) Option {
	return func(b *Bus) { b.observer = o }
}

// Bus - шина событий. Слушатели вызываются асинхронно после публикации,
// их ошибки не возвращаются публикующему.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	logger    *zap.Logger
	wg        sync.WaitGroup

	attempts int
	delay    time.Duration
	timeout  time.Duration
	observer Observer
}

func New(logger *zap.Logger, opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[string][]Listener),
		logger:    logger,
		attempts:  1,
		timeout:   time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish запускает всех подписчиков события в отдельных горутинах.
func (b *Bus) Publish(_ context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.wg.Add(1)
		go func(l Listener) {
			defer b.wg.Done()
			b.dispatch(l, event)
		}(listener)
	}
}

// call вызывает слушателя; паника превращается в ошибку попытки,
// чтобы упавший обработчик не остановил процесс.
func (b *Bus) call(ctx context.Context, l Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Паника в обработчике события",
				zap.String("event", event.Name()),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("паника в обработчике события %s: %v", event.Name(), r)
		}
	}()
	return l(ctx, event)
}

func (b *Bus) dispatch(l Listener, event Event) {
	eventName := event.Name()
	start := time.Now()

	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		// свой контекст: запрос, опубликовавший событие, уже мог завершиться
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		err = b.call(ctx, l, event)
		cancel()
		if err == nil {
			break
		}
		b.logger.Warn("Ошибка в обработчике события",
			zap.String("event", eventName),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt < b.attempts && b.delay > 0 {
			time.Sleep(b.delay)
		}
	}

	if err != nil {
		b.logger.Error("Событие не обработано после всех попыток",
			zap.String("event", eventName),
			zap.Int("attempts", b.attempts),
			zap.Error(err),
		)
	}
	if b.observer != nil {
		b.observer(eventName, err, time.Since(start))
	}
}

// Wait дожидается завершения уже запущенных обработчиков.
func (b *Bus) Wait() {
	b.wg.Wait()
}
