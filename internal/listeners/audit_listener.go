package listeners

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lab-workflow/internal/events"
	"lab-workflow/pkg/eventbus"
)

// AuditPublisher - внешний приемник аудита (RabbitMQ).
type AuditPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// AuditListener пересылает все события заказа во внешний приемник.
// Routing key совпадает с именем события.
type AuditListener struct {
	publisher AuditPublisher
	logger    *zap.Logger
}

func NewAuditListener(publisher AuditPublisher, logger *zap.Logger) *AuditListener {
	return &AuditListener{publisher: publisher, logger: logger}
}

func (l *AuditListener) Register(bus *eventbus.Bus) {
	for _, name := range events.All {
		bus.Subscribe(name, l.handle)
	}
	l.logger.Info("AuditListener подписан на события заказа", zap.Int("events", len(events.All)))
}

func (l *AuditListener) handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.LabOrderEvent)
	if !ok {
		return nil
	}
	if err := l.publisher.Publish(ctx, e.EventName, e); err != nil {
		return fmt.Errorf("аудит %s для заказа %s: %w", e.EventName, e.OrderID, err)
	}
	l.logger.Debug("Событие отправлено в аудит",
		zap.String("event", e.EventName),
		zap.String("orderID", e.OrderID.String()),
		zap.Int64("version", e.Version),
	)
	return nil
}
