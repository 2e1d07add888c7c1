package listeners

import (
	"context"

	"go.uber.org/zap"

	"lab-workflow/internal/events"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/eventbus"
	"lab-workflow/pkg/websocket"
)

const boardMessageType = "lab_board_update"

// Broadcaster - то, что умеет разослать сообщение всем клиентам доски.
type Broadcaster interface {
	Broadcast(ctx context.Context, messageType string, payload interface{}) error
}

// BoardListener отправляет изменения заказов на доску через WebSocket.
type BoardListener struct {
	hub    Broadcaster
	logger *zap.Logger
}

func NewBoardListener(hub Broadcaster, logger *zap.Logger) *BoardListener {
	return &BoardListener{hub: hub, logger: logger}
}

func (l *BoardListener) Register(bus *eventbus.Bus) {
	for _, name := range events.All {
		bus.Subscribe(name, l.handle)
	}
	l.logger.Info("BoardListener подписан на события заказа")
}

func (l *BoardListener) handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.LabOrderEvent)
	if !ok {
		return nil
	}
	return l.hub.Broadcast(ctx, boardMessageType, toBoardUpdate(e))
}

func toBoardUpdate(e events.LabOrderEvent) websocket.BoardUpdate {
	update := websocket.BoardUpdate{
		EventID:   e.EventID.String(),
		OrderID:   e.OrderID.String(),
		Event:     e.EventName,
		ToStage:   string(e.Stage),
		ActorRole: e.ActorRole,
		Version:   e.Version,
		CreatedAt: e.OccurredAt,
	}
	if e.Record != nil {
		update.FromStage = string(e.Record.FromStage)
		update.ToStage = string(e.Record.ToStage)
	}
	update.Message = boardMessage(e)
	return update
}

func boardMessage(e events.LabOrderEvent) string {
	switch e.EventName {
	case events.OrderRegistered:
		return "Новый заказ: " + workflow.Label(e.Stage)
	case events.StageTransitioned:
		if e.Record != nil {
			return workflow.Label(e.Record.FromStage) + " → " + workflow.Label(e.Record.ToStage)
		}
		return workflow.Label(e.Stage)
	case events.TimerToggled:
		return "Таймер переключен"
	case events.PauseRequested:
		return "Запрошена пауза"
	case events.PauseApproved:
		return "Пауза одобрена"
	case events.PauseRejected:
		return "Запрос паузы отклонен"
	case events.PauseResumed:
		return "Работа возобновлена"
	}
	return e.EventName
}
