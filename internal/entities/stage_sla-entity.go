package entities

import (
	"time"

	"lab-workflow/pkg/constants"
)

type StageSLAConfig struct {
	Stage        constants.LabStage `db:"stage" json:"stage"`
	TargetHours  int                `db:"target_hours" json:"target_hours"`
	WarningHours int                `db:"warning_hours" json:"warning_hours"`
	IsActive     bool               `db:"is_active" json:"is_active"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}
