package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"

	"lab-workflow/pkg/constants"
)

// StageTransitionRecord - неизменяемая запись истории заказа (переходы и паузы).
type StageTransitionRecord struct {
	ID            uuid.UUID                `db:"id" json:"id"`
	OrderID       uuid.UUID                `db:"order_id" json:"order_id"`
	Kind          constants.TransitionKind `db:"kind" json:"kind"`
	FromStage     constants.LabStage       `db:"from_stage" json:"from_stage"`
	ToStage       constants.LabStage       `db:"to_stage" json:"to_stage"`
	Justification null.String              `db:"justification" json:"justification"`
	ActorRole     string                   `db:"actor_role" json:"actor_role"`
	ActorID       null.String              `db:"actor_id" json:"actor_id"`
	WorkedSeconds int64                    `db:"worked_seconds" json:"worked_seconds"`
	CreatedAt     time.Time                `db:"created_at" json:"created_at"`
}

// DailyCount - число событий за календарный день (UTC, полночь).
type DailyCount struct {
	Day   time.Time `db:"day" json:"day"`
	Count int       `db:"count" json:"count"`
}
