package workflow

import (
	"strings"
	"time"

	"github.com/aarondl/null/v8"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

// RequestPause фиксирует запрос паузы. Сам заказ не останавливается до одобрения.
func RequestPause(order *entities.LabOrder, actorRole, reason string, now time.Time) (entities.StageTransitionRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return entities.StageTransitionRecord{}, apperrors.ErrMissingReason
	}
	if order.IsPaused || order.PauseRequested {
		return entities.StageTransitionRecord{}, apperrors.ErrAlreadyPaused
	}

	record := newRecord(order, constants.TransitionPauseRequest, order.Stage, actorRole, reason, now)
	order.PauseRequested = true
	order.PauseRequestedAt = null.TimeFrom(now)
	order.PauseRequestedByRole = null.StringFrom(actorRole)
	order.PauseReason = null.StringFrom(reason)
	order.UpdatedAt = now
	return record, nil
}

// ApprovePause ставит заказ на паузу, часы SLA останавливаются с этого момента.
func ApprovePause(order *entities.LabOrder, approverRole string, now time.Time) (entities.StageTransitionRecord, error) {
	if !constants.IsCoordinator(approverRole) {
		return entities.StageTransitionRecord{}, apperrors.ErrForbidden
	}
	if order.IsPaused {
		return entities.StageTransitionRecord{}, apperrors.ErrAlreadyPaused
	}
	if !order.PauseRequested {
		return entities.StageTransitionRecord{}, apperrors.ErrNoPendingPause
	}

	record := newRecord(order, constants.TransitionPauseApproved, order.Stage, approverRole, order.PauseReason.String, now)
	order.IsPaused = true
	order.PausedAt = null.TimeFrom(now)
	clearPauseRequest(order)
	order.UpdatedAt = now
	return record, nil
}

// RejectPause снимает запрос, заказ продолжает работу.
func RejectPause(order *entities.LabOrder, approverRole, comment string, now time.Time) (entities.StageTransitionRecord, error) {
	if !constants.IsCoordinator(approverRole) {
		return entities.StageTransitionRecord{}, apperrors.ErrForbidden
	}
	if !order.PauseRequested {
		return entities.StageTransitionRecord{}, apperrors.ErrNoPendingPause
	}

	record := newRecord(order, constants.TransitionPauseRejected, order.Stage, approverRole, comment, now)
	clearPauseRequest(order)
	order.PauseReason = null.String{}
	order.UpdatedAt = now
	return record, nil
}

// ResumeFromPause добавляет длительность закрытой паузы к общему итогу.
func ResumeFromPause(order *entities.LabOrder, actorRole string, now time.Time) (entities.StageTransitionRecord, error) {
	if !order.IsPaused {
		return entities.StageTransitionRecord{}, apperrors.ErrNotPaused
	}

	if order.PausedAt.Valid {
		if d := now.Sub(order.PausedAt.Time); d > 0 {
			order.PausedDurationTotalSeconds += int64(d / time.Second)
		}
	}
	record := newRecord(order, constants.TransitionPauseResumed, order.Stage, actorRole, "", now)
	order.IsPaused = false
	order.PausedAt = null.Time{}
	order.PauseReason = null.String{}
	order.UpdatedAt = now
	return record, nil
}

func clearPauseRequest(order *entities.LabOrder) {
	order.PauseRequested = false
	order.PauseRequestedAt = null.Time{}
	order.PauseRequestedByRole = null.String{}
}
