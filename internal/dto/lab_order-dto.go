package dto

import "time"

// --- Входящие запросы ---

// RegisterLabOrderDTO приходит от сервиса создания заказов.
type RegisterLabOrderDTO struct {
	ID                 string     `json:"id,omitempty" validate:"omitempty,uuid"`
	OrderNumber        *string    `json:"order_number,omitempty" validate:"omitempty,max=64"`
	Priority           string     `json:"priority" validate:"lab_priority"`
	IsDigital          bool       `json:"is_digital"`
	SLABusinessDays    int        `json:"sla_business_days" validate:"min=0,max=60"`
	ItemSLADays        []int      `json:"item_sla_days,omitempty" validate:"omitempty,dive,min=0,max=60"`
	ManualDeliveryDate *time.Time `json:"manual_delivery_date,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
	ClinicName         *string    `json:"clinic_name,omitempty" validate:"omitempty,max=255"`
	PatientSummary     *string    `json:"patient_summary,omitempty" validate:"omitempty,max=500"`
	ProductName        *string    `json:"product_name,omitempty" validate:"omitempty,max=255"`
	DoctorName         *string    `json:"doctor_name,omitempty" validate:"omitempty,max=255"`
}

// CommitTransitionDTO - перевод на этап. expected_version - версия карточки,
// по которой принято решение; без нее устаревший запрос мог бы сдвинуть заказ с другого этапа.
type CommitTransitionDTO struct {
	TargetStage     string `json:"target_stage" validate:"required,lab_stage"`
	Justification   string `json:"justification" validate:"max=1000"`
	ExpectedVersion int64  `json:"expected_version" validate:"required,min=1"`
}

type ReturnToPreviousStageDTO struct {
	Justification   string `json:"justification" validate:"required,not_blank,max=1000"`
	ExpectedVersion int64  `json:"expected_version" validate:"required,min=1"`
}

type RequestPauseDTO struct {
	Reason          string `json:"reason" validate:"required,not_blank,max=1000"`
	ExpectedVersion int64  `json:"expected_version" validate:"min=0"`
}

type PauseDecisionDTO struct {
	Comment         string `json:"comment" validate:"max=1000"`
	ExpectedVersion int64  `json:"expected_version" validate:"min=0"`
}

// BoardFilterDTO - параметры запроса доски.
type BoardFilterDTO struct {
	Priority []string `validate:"omitempty,dive,lab_priority"`
	Stage    []string `validate:"omitempty,dive,lab_stage"`
	Digital  *bool
	Paused   *bool
}

type UpdateStageSLADTO struct {
	TargetHours  int   `json:"target_hours" validate:"min=0,max=720"`
	WarningHours int   `json:"warning_hours" validate:"min=0,max=720"`
	IsActive     *bool `json:"is_active" validate:"required"`
}

// --- Ответы ---

type TimerStateDTO struct {
	TotalSeconds   int64      `json:"total_seconds"`
	IsRunning      bool       `json:"is_running"`
	LastStart      *time.Time `json:"last_start,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
	Elapsed        string     `json:"elapsed"`
}

type PauseDTO struct {
	IsPaused           bool       `json:"is_paused"`
	PausedAt           *time.Time `json:"paused_at,omitempty"`
	Reason             *string    `json:"reason,omitempty"`
	PausedTotalSeconds int64      `json:"paused_total_seconds"`
	Requested          bool       `json:"requested"`
	RequestedAt        *time.Time `json:"requested_at,omitempty"`
	RequestedByRole    *string    `json:"requested_by_role,omitempty"`
}

// LabOrderDTO - карточка заказа с вычисленными сроками.
type LabOrderDTO struct {
	ID             string    `json:"id"`
	OrderNumber    *string   `json:"order_number,omitempty"`
	Stage          string    `json:"stage"`
	StageLabel     string    `json:"stage_label"`
	StageIndex     int       `json:"stage_index"`
	StageEnteredAt time.Time `json:"stage_entered_at"`
	Priority       string    `json:"priority"`
	IsDigital      bool      `json:"is_digital"`
	CreatedAt      time.Time `json:"created_at"`

	SLABusinessDays    int        `json:"sla_business_days"`
	ManualDeliveryDate *time.Time `json:"manual_delivery_date,omitempty"`
	TargetDeliveryDate time.Time  `json:"target_delivery_date"`
	RemainingSeconds   int64      `json:"remaining_seconds"`
	Remaining          string     `json:"remaining"`
	SLAStatus          string     `json:"sla_status"`
	StageDwellSeconds  int64      `json:"stage_dwell_seconds"`
	StageDwell         string     `json:"stage_dwell"`
	StageSLAStatus     string     `json:"stage_sla_status"`

	Pause PauseDTO      `json:"pause"`
	Timer TimerStateDTO `json:"timer"`

	ClinicName     *string `json:"clinic_name,omitempty"`
	PatientSummary *string `json:"patient_summary,omitempty"`
	ProductName    *string `json:"product_name,omitempty"`
	DoctorName     *string `json:"doctor_name,omitempty"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StageColumnDTO struct {
	Stage  string        `json:"stage"`
	Label  string        `json:"label"`
	Index  int           `json:"index"`
	Count  int           `json:"count"`
	Orders []LabOrderDTO `json:"orders"`
}

type BoardDTO struct {
	Columns     []StageColumnDTO `json:"columns"`
	Total       int              `json:"total"`
	GeneratedAt time.Time        `json:"generated_at"`
}

type BoardStatsDTO struct {
	Total         int            `json:"total"`
	PerStage      map[string]int `json:"per_stage"`
	Paused        int            `json:"paused"`
	PendingPauses int            `json:"pending_pauses"`
	Overdue       int            `json:"overdue"`
	AtRisk        int            `json:"at_risk"`
	StageBreached int            `json:"stage_breached"`
	// AvgSLAPercent - средняя доля неизрасходованного срока по заказам, в процентах.
	AvgSLAPercent float64 `json:"avg_sla_pct"`
}

type ProductionDayDTO struct {
	Day            string `json:"day"`
	CompletedCount int    `json:"completed_count"`
}

// ProductionChartDTO - заказы, переданные на доставку, по дням (UTC).
type ProductionChartDTO struct {
	From  time.Time          `json:"from"`
	To    time.Time          `json:"to"`
	Days  []ProductionDayDTO `json:"days"`
	Total int                `json:"total"`
}

type TransitionRecordDTO struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	FromStage     string    `json:"from_stage"`
	FromLabel     string    `json:"from_label"`
	ToStage       string    `json:"to_stage"`
	ToLabel       string    `json:"to_label"`
	Justification *string   `json:"justification,omitempty"`
	ActorRole     string    `json:"actor_role"`
	ActorID       *string   `json:"actor_id,omitempty"`
	WorkedSeconds int64     `json:"worked_seconds"`
	CreatedAt     time.Time `json:"created_at"`
}

type StageWorkDTO struct {
	Stage   string `json:"stage"`
	Label   string `json:"label"`
	Seconds int64  `json:"seconds"`
	Worked  string `json:"worked"`
}

type OrderHistoryDTO struct {
	OrderID   string                `json:"order_id"`
	Records   []TransitionRecordDTO `json:"records"`
	Breakdown []StageWorkDTO        `json:"breakdown"`
}

type StageSLAConfigDTO struct {
	Stage        string    `json:"stage"`
	Label        string    `json:"label"`
	TargetHours  int       `json:"target_hours"`
	WarningHours int       `json:"warning_hours"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type TimerToggleDTO struct {
	OrderID string        `json:"order_id"`
	Version int64         `json:"version"`
	Timer   TimerStateDTO `json:"timer"`
}
