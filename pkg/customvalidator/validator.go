package customvalidator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"lab-workflow/pkg/constants"
)

// RegisterCustomValidations регистрирует правила, которые используются в DTO.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("lab_stage", isLabStage); err != nil {
		return err
	}
	if err := v.RegisterValidation("lab_priority", isLabPriority); err != nil {
		return err
	}
	if err := v.RegisterValidation("not_blank", isNotBlank); err != nil {
		return err
	}
	return nil
}

func isLabStage(fl validator.FieldLevel) bool {
	return constants.IsValidStage(constants.LabStage(fl.Field().String()))
}

// пустой приоритет допустим: будет взят normal
func isLabPriority(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || constants.IsValidPriority(constants.LabPriority(s))
}

func isNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
