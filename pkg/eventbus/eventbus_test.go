package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testEvent struct{}

func (testEvent) Name() string { return "test.event" }

func TestBus_RetriesUntilSuccess(t *testing.T) {
	var calls int32
	var observed error = errors.New("не вызван")

	bus := New(zap.NewNop(),
		WithRetry(3, 0),
		WithObserver(func(_ string, err error, _ time.Duration) { observed = err }),
	)
	bus.Subscribe("test.event", func(ctx context.Context, e Event) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("брокер недоступен")
		}
		return nil
	})

	bus.Publish(context.Background(), testEvent{})
	bus.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.NoError(t, observed)
}

func TestBus_GivesUpAfterAttempts(t *testing.T) {
	var calls int32
	var observed error

	bus := New(zap.NewNop(),
		WithRetry(2, time.Millisecond),
		WithObserver(func(_ string, err error, _ time.Duration) { observed = err }),
	)
	bus.Subscribe("test.event", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("сбой")
	})

	bus.Publish(context.Background(), testEvent{})
	bus.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Error(t, observed)
}

func TestBus_NoListeners(t *testing.T) {
	bus := New(zap.NewNop())
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), testEvent{})
		bus.Wait()
	})
}

func TestBus_ListenerPanicIsRecovered(t *testing.T) {
	var calls, delivered, failed int32

	bus := New(zap.NewNop(),
		WithRetry(2, 0),
		WithObserver(func(_ string, err error, _ time.Duration) {
			if err != nil {
				atomic.AddInt32(&failed, 1)
			}
		}),
	)
	bus.Subscribe("test.event", func(ctx context.Context, e Event) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("nil map в обработчике")
		}
		return nil
	})
	bus.Subscribe("test.event", func(ctx context.Context, e Event) error {
		panic("обработчик сломан")
	})
	bus.Subscribe("test.event", func(ctx context.Context, e Event) error {
		atomic.AddInt32(&delivered, 1)
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), testEvent{})
		bus.Wait()
	})
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "после паники попытка повторяется")
	assert.Equal(t, int32(1), atomic.LoadInt32(&delivered))
	assert.Equal(t, int32(1), atomic.LoadInt32(&failed), "только всегда падающий обработчик")
}
