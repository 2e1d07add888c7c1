package services

import (
	"time"

	"lab-workflow/internal/dto"
	"lab-workflow/internal/entities"
	"lab-workflow/internal/workflow"
	"lab-workflow/pkg/utils"
)

var formatSeconds = utils.FormatSecondsToHumanReadable

// labOrderToDTO заполняет поля карточки, которые не зависят от календаря и нормативов.
func labOrderToDTO(order *entities.LabOrder, now time.Time) dto.LabOrderDTO {
	idx, _ := workflow.IndexOf(order.Stage)
	timer := workflow.StateOf(order.Timer, now)

	return dto.LabOrderDTO{
		ID:                 order.ID.String(),
		OrderNumber:        order.OrderNumber.Ptr(),
		Stage:              string(order.Stage),
		StageLabel:         workflow.Label(order.Stage),
		StageIndex:         idx,
		StageEnteredAt:     order.StageEnteredAt,
		Priority:           string(order.Priority),
		IsDigital:          order.IsDigital,
		CreatedAt:          order.CreatedAt,
		SLABusinessDays:    order.SLABusinessDays,
		ManualDeliveryDate: order.ManualDeliveryDate.Ptr(),
		Pause: dto.PauseDTO{
			IsPaused:           order.IsPaused,
			PausedAt:           order.PausedAt.Ptr(),
			Reason:             order.PauseReason.Ptr(),
			PausedTotalSeconds: order.PausedDurationTotalSeconds,
			Requested:          order.PauseRequested,
			RequestedAt:        order.PauseRequestedAt.Ptr(),
			RequestedByRole:    order.PauseRequestedByRole.Ptr(),
		},
		Timer:          TimerStateToDTO(timer),
		ClinicName:     order.ClinicName.Ptr(),
		PatientSummary: order.PatientSummary.Ptr(),
		ProductName:    order.ProductName.Ptr(),
		DoctorName:     order.DoctorName.Ptr(),
		Version:        order.Version,
		UpdatedAt:      order.UpdatedAt,
	}
}

// OrderSnapshotToDTO - карточка без сроков и нормативов, когда их не удалось рассчитать.
func OrderSnapshotToDTO(order *entities.LabOrder, now time.Time) dto.LabOrderDTO {
	return labOrderToDTO(order, now)
}

func TimerStateToDTO(state workflow.TimerState) dto.TimerStateDTO {
	out := dto.TimerStateDTO{
		TotalSeconds:   state.TotalSeconds,
		IsRunning:      state.IsRunning,
		ElapsedSeconds: state.ElapsedSeconds,
		Elapsed:        formatSeconds(state.ElapsedSeconds),
	}
	if state.LastStart.Valid {
		out.LastStart = &state.LastStart.Time
	}
	return out
}

func HistoryToDTO(h *OrderHistory) dto.OrderHistoryDTO {
	out := dto.OrderHistoryDTO{
		OrderID:   h.Order.ID.String(),
		Records:   make([]dto.TransitionRecordDTO, 0, len(h.Records)),
		Breakdown: make([]dto.StageWorkDTO, 0, len(h.Breakdown)),
	}
	for _, r := range h.Records {
		out.Records = append(out.Records, dto.TransitionRecordDTO{
			ID:            r.ID.String(),
			Kind:          string(r.Kind),
			FromStage:     string(r.FromStage),
			FromLabel:     workflow.Label(r.FromStage),
			ToStage:       string(r.ToStage),
			ToLabel:       workflow.Label(r.ToStage),
			Justification: r.Justification.Ptr(),
			ActorRole:     r.ActorRole,
			ActorID:       r.ActorID.Ptr(),
			WorkedSeconds: r.WorkedSeconds,
			CreatedAt:     r.CreatedAt,
		})
	}
	for _, w := range h.Breakdown {
		out.Breakdown = append(out.Breakdown, dto.StageWorkDTO{
			Stage:   string(w.Stage),
			Label:   w.Label,
			Seconds: w.Seconds,
			Worked:  formatSeconds(w.Seconds),
		})
	}
	return out
}

func StageSLAConfigsToDTO(configs []entities.StageSLAConfig) []dto.StageSLAConfigDTO {
	out := make([]dto.StageSLAConfigDTO, 0, len(configs))
	for _, c := range configs {
		out = append(out, dto.StageSLAConfigDTO{
			Stage:        string(c.Stage),
			Label:        workflow.Label(c.Stage),
			TargetHours:  c.TargetHours,
			WarningHours: c.WarningHours,
			IsActive:     c.IsActive,
			UpdatedAt:    c.UpdatedAt,
		})
	}
	return out
}
