package constants

// LabStage - код этапа производственного конвейера лаборатории (совпадает с кодами в БД).
type LabStage string

const (
	StageClinicPending    LabStage = "clinic_pending"
	StageDigitalPicking   LabStage = "digital_picking"
	StageIncomeValidation LabStage = "income_validation"
	StageGypsum           LabStage = "gypsum"
	StageDesign           LabStage = "design"
	StageClientApproval   LabStage = "client_approval"
	StageNesting          LabStage = "nesting"
	StageProductionMan    LabStage = "production_man"
	StageQA               LabStage = "qa"
	StageBilling          LabStage = "billing"
	StageDelivery         LabStage = "delivery"
)

func IsValidStage(s LabStage) bool {
	switch s {
	case StageClinicPending, StageDigitalPicking, StageIncomeValidation, StageGypsum, StageDesign,
		StageClientApproval, StageNesting, StageProductionMan, StageQA, StageBilling, StageDelivery:
		return true
	}
	return false
}

// LabPriority - приоритет заказа, задается при создании.
type LabPriority string

const (
	PriorityUrgent LabPriority = "urgent"
	PriorityHigh   LabPriority = "high"
	PriorityNormal LabPriority = "normal"
	PriorityLow    LabPriority = "low"
)

func IsValidPriority(p LabPriority) bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// SLA по умолчанию (в рабочих днях), если ни заказ, ни его позиции не задали срок.
var DefaultSLABusinessDays = map[LabPriority]int{
	PriorityUrgent: 1,
	PriorityHigh:   2,
	PriorityNormal: 2,
	PriorityLow:    3,
}

// --- РОЛИ (приходят от провайдера идентичности) ---
const (
	RoleSuperAdmin     = "super_admin"
	RoleLabAdmin       = "lab_admin"
	RoleLabCoordinator = "lab_coordinator"
	RoleProductionTech = "production_tech"
	RoleDesigner       = "designer"
	RoleClinicStaff    = "clinic_staff"
)

// CoordinatorRoles - роли, которым разрешено одобрять паузы, переводить в биллинг и менять SLA.
var CoordinatorRoles = []string{RoleLabAdmin, RoleLabCoordinator, RoleSuperAdmin}

func IsCoordinator(role string) bool {
	for _, r := range CoordinatorRoles {
		if r == role {
			return true
		}
	}
	return false
}

// TransitionKind - тип записи в истории заказа.
type TransitionKind string

const (
	TransitionForward       TransitionKind = "FORWARD"
	TransitionBackward      TransitionKind = "BACKWARD"
	TransitionPauseRequest  TransitionKind = "PAUSE_REQUEST"
	TransitionPauseApproved TransitionKind = "PAUSE_APPROVED"
	TransitionPauseRejected TransitionKind = "PAUSE_REJECTED"
	TransitionPauseResumed  TransitionKind = "PAUSE_RESUMED"
)

// IsStageChange - меняет ли запись этап заказа.
func (k TransitionKind) IsStageChange() bool {
	return k == TransitionForward || k == TransitionBackward
}

// SLA статусы для доски.
const (
	SLAOnTrack = "on_track"
	SLAAtRisk  = "at_risk"
	SLAOverdue = "overdue"

	StageSLAOk       = "ok"
	StageSLAWarning  = "warning"
	StageSLABreached = "breached"
	StageSLADisabled = "disabled"
)
