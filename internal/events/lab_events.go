package events

import (
	"time"

	"github.com/google/uuid"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
)

// Имена событий совпадают с routing key в RabbitMQ.
const (
	OrderRegistered   = "lab.order.registered"
	StageTransitioned = "lab.stage.transitioned"
	TimerToggled      = "lab.timer.toggled"
	PauseRequested    = "lab.pause.requested"
	PauseApproved     = "lab.pause.approved"
	PauseRejected     = "lab.pause.rejected"
	PauseResumed      = "lab.pause.resumed"
)

// All - все события, на которые подписываются слушатели.
var All = []string{OrderRegistered, StageTransitioned, TimerToggled, PauseRequested, PauseApproved, PauseRejected, PauseResumed}

// LabOrderEvent публикуется после успешного коммита изменения заказа.
type LabOrderEvent struct {
	EventID    uuid.UUID                       `json:"event_id"`
	EventName  string                          `json:"event"`
	OrderID    uuid.UUID                       `json:"order_id"`
	Stage      constants.LabStage              `json:"stage"`
	Version    int64                           `json:"version"`
	ActorRole  string                          `json:"actor_role"`
	ActorID    string                          `json:"actor_id,omitempty"`
	Record     *entities.StageTransitionRecord `json:"record,omitempty"`
	Reason     string                          `json:"pause_reason,omitempty"`
	OccurredAt time.Time                       `json:"occurred_at"`
}

// Name - реализуем интерфейс eventbus.Event
func (e LabOrderEvent) Name() string {
	return e.EventName
}

func NewLabOrderEvent(name string, order *entities.LabOrder, actorRole, actorID string, record *entities.StageTransitionRecord, at time.Time) LabOrderEvent {
	e := LabOrderEvent{
		EventID:    uuid.New(),
		EventName:  name,
		OrderID:    order.ID,
		Stage:      order.Stage,
		Version:    order.Version,
		ActorRole:  actorRole,
		ActorID:    actorID,
		Record:     record,
		OccurredAt: at,
	}
	// для заказа на паузе или с открытым запросом причина нужна уведомлениям
	if order.IsPaused || order.PauseRequested {
		e.Reason = order.PauseReason.String
	}
	return e
}
