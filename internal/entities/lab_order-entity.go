package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"

	"lab-workflow/pkg/constants"
)

// TimerLedger - накопитель рабочего времени заказа.
type TimerLedger struct {
	TotalSeconds int64     `db:"timer_total_seconds" json:"total_seconds"`
	IsRunning    bool      `db:"timer_is_running" json:"is_running"`
	LastStart    null.Time `db:"timer_last_start" json:"last_start"`
}

type LabOrder struct {
	ID             uuid.UUID             `db:"id" json:"id"`
	OrderNumber    null.String           `db:"order_number" json:"order_number"`
	Stage          constants.LabStage    `db:"stage" json:"stage"`
	StageEnteredAt time.Time             `db:"stage_entered_at" json:"stage_entered_at"`
	Priority       constants.LabPriority `db:"priority" json:"priority"`
	IsDigital      bool                  `db:"is_digital" json:"is_digital"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`

	SLABusinessDays    int       `db:"sla_business_days" json:"sla_business_days"`
	ManualDeliveryDate null.Time `db:"manual_delivery_date" json:"manual_delivery_date"`

	IsPaused                   bool        `db:"is_paused" json:"is_paused"`
	PausedAt                   null.Time   `db:"paused_at" json:"paused_at"`
	PauseReason                null.String `db:"pause_reason" json:"pause_reason"`
	PausedDurationTotalSeconds int64       `db:"paused_duration_total_seconds" json:"paused_duration_total_seconds"`
	PauseRequested             bool        `db:"pause_requested" json:"pause_requested"`
	PauseRequestedAt           null.Time   `db:"pause_requested_at" json:"pause_requested_at"`
	PauseRequestedByRole       null.String `db:"pause_requested_by_role" json:"pause_requested_by_role"`

	Timer TimerLedger `json:"timer"`

	ClinicName     null.String `db:"clinic_name" json:"clinic_name"`
	PatientSummary null.String `db:"patient_summary" json:"patient_summary"`
	ProductName    null.String `db:"product_name" json:"product_name"`
	DoctorName     null.String `db:"doctor_name" json:"doctor_name"`

	Version   int64     `db:"version" json:"version"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PausedDuration - суммарное время закрытых пауз.
func (o *LabOrder) PausedDuration() time.Duration {
	return time.Duration(o.PausedDurationTotalSeconds) * time.Second
}

// LabOrderFilter - фильтр для выборки доски.
type LabOrderFilter struct {
	Stages       []constants.LabStage
	Priorities   []constants.LabPriority
	IsDigital    *bool
	IsPaused     *bool
	PausePending *bool
}
