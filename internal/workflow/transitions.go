package workflow

import (
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

// Confirmation - куда перейдёт заказ по кнопке "Готово".
type Confirmation struct {
	OrderID     uuid.UUID            `json:"order_id"`
	FromStage   constants.LabStage   `json:"from_stage"`
	TargetStage constants.LabStage   `json:"target_stage"`
	TargetIndex int                  `json:"target_index"`
	TargetLabel string               `json:"target_label"`
	Skipped     []constants.LabStage `json:"skipped,omitempty"`
	// Allowed - может ли роль подтвердить переход.
	Allowed bool  `json:"allowed"`
	Version int64 `json:"version"`
}

// RequestForwardTransition ничего не меняет, только вычисляет следующий этап.
func RequestForwardTransition(order *entities.LabOrder, actorRole string) (Confirmation, error) {
	next, err := NextStage(order)
	if err != nil {
		return Confirmation{}, err
	}
	current, _ := IndexOf(order.Stage)
	target := registry[next]

	return Confirmation{
		OrderID:     order.ID,
		FromStage:   order.Stage,
		TargetStage: target.ID,
		TargetIndex: next,
		TargetLabel: target.Label,
		Skipped:     skippedBetween(current, next),
		Allowed:     CanEnter(target.ID, actorRole),
		Version:     order.Version,
	}, nil
}

// ValidateTransition проверяет переход и возвращает его направление.
func ValidateTransition(order *entities.LabOrder, target constants.LabStage, actorRole, justification string) (constants.TransitionKind, error) {
	current, ok := IndexOf(order.Stage)
	if !ok {
		return "", apperrors.ErrUnknownStage
	}
	targetIdx, ok := IndexOf(target)
	if !ok {
		return "", apperrors.ErrUnknownStage
	}
	if targetIdx == current {
		return "", apperrors.ErrStageUnchanged
	}
	if !CanEnter(target, actorRole) {
		return "", apperrors.ErrForbidden
	}

	if targetIdx < current {
		if strings.TrimSpace(justification) == "" {
			return "", apperrors.ErrMissingJustification
		}
		return constants.TransitionBackward, nil
	}

	next, err := NextStage(order)
	if err != nil {
		return "", err
	}
	if targetIdx != next {
		return "", apperrors.ErrInvalidTransition
	}
	return constants.TransitionForward, nil
}

// ApplyTransition переводит заказ на этап target и возвращает запись для истории.
// При ошибке заказ не изменяется.
func ApplyTransition(order *entities.LabOrder, target constants.LabStage, actorRole, justification string, now time.Time) (entities.StageTransitionRecord, error) {
	kind, err := ValidateTransition(order, target, actorRole, justification)
	if err != nil {
		return entities.StageTransitionRecord{}, err
	}

	record := newRecord(order, kind, target, actorRole, justification, now)
	order.Stage = target
	order.StageEnteredAt = now
	order.UpdatedAt = now
	return record, nil
}

func newRecord(order *entities.LabOrder, kind constants.TransitionKind, to constants.LabStage, actorRole, text string, now time.Time) entities.StageTransitionRecord {
	rec := entities.StageTransitionRecord{
		ID:            uuid.New(),
		OrderID:       order.ID,
		Kind:          kind,
		FromStage:     order.Stage,
		ToStage:       to,
		ActorRole:     actorRole,
		WorkedSeconds: CurrentElapsed(order.Timer, now),
		CreatedAt:     now,
	}
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		rec.Justification = null.StringFrom(trimmed)
	}
	return rec
}
