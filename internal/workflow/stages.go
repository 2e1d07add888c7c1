// Package workflow содержит правила производственного конвейера лаборатории:
// реестр этапов, переходы, таймер работы, паузы и расчёт SLA.
// Функции пакета не обращаются к хранилищу и не читают системные часы.
package workflow

import (
	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
	apperrors "lab-workflow/pkg/errors"
)

// StageDefinition - описание этапа в реестре.
type StageDefinition struct {
	ID    constants.LabStage
	Label string
	// AllowedRoles - кто может переводить заказ НА этот этап. Пусто - без ограничений.
	AllowedRoles []string
	// DigitalSkippable - цифровые заказы пропускают этап при движении вперёд.
	DigitalSkippable bool
	Description      string
}

// Порядок в срезе = порядок конвейера.
var registry = []StageDefinition{
	{ID: constants.StageClinicPending, Label: "1. Клиника", Description: "Ожидание забора или отправки из клиники"},
	{ID: constants.StageDigitalPicking, Label: "2. Цифровой пикинг", DigitalSkippable: true, Description: "Подготовка файлов и моделей"},
	{ID: constants.StageIncomeValidation, Label: "3. Приёмка", Description: "Проверка материалов и требований"},
	{ID: constants.StageGypsum, Label: "4. Гипс", DigitalSkippable: true, Description: "Отливка и артикуляция моделей"},
	{ID: constants.StageDesign, Label: "5. Дизайн", Description: "CAD/CAM дизайн реставрации"},
	{ID: constants.StageClientApproval, Label: "6. Согласование с клиникой", Description: "Ожидание одобрения врача"},
	{ID: constants.StageNesting, Label: "7. Нестинг", Description: "Подготовка фрезеровки или 3D-печати"},
	{ID: constants.StageProductionMan, Label: "8. Ручная обработка", Description: "Керамика, доработка, полировка"},
	{ID: constants.StageQA, Label: "9. Контроль качества", Description: "Финальный контроль качества"},
	{ID: constants.StageBilling, Label: "10. Биллинг", AllowedRoles: constants.CoordinatorRoles, Description: "Выставление счёта"},
	{ID: constants.StageDelivery, Label: "11. Доставка", Description: "В пути или отправлен"},
}

var stageIndex = func() map[constants.LabStage]int {
	idx := make(map[constants.LabStage]int, len(registry))
	for i, def := range registry {
		idx[def.ID] = i
	}
	return idx
}()

// Stages возвращает копию реестра в порядке конвейера.
func Stages() []StageDefinition {
	out := make([]StageDefinition, len(registry))
	copy(out, registry)
	return out
}

func InitialStage() constants.LabStage { return registry[0].ID }

func TerminalStage() constants.LabStage { return registry[len(registry)-1].ID }

// IndexOf возвращает позицию этапа; false - этапа нет в реестре.
func IndexOf(stage constants.LabStage) (int, bool) {
	i, ok := stageIndex[stage]
	return i, ok
}

func IsKnownStage(stage constants.LabStage) bool {
	_, ok := stageIndex[stage]
	return ok
}

// Lookup возвращает описание этапа.
func Lookup(stage constants.LabStage) (StageDefinition, error) {
	i, ok := stageIndex[stage]
	if !ok {
		return StageDefinition{}, apperrors.ErrUnknownStage
	}
	return registry[i], nil
}

// StageAt возвращает этап по индексу.
func StageAt(index int) (StageDefinition, error) {
	if index < 0 || index >= len(registry) {
		return StageDefinition{}, apperrors.ErrUnknownStage
	}
	return registry[index], nil
}

func Label(stage constants.LabStage) string {
	if def, err := Lookup(stage); err == nil {
		return def.Label
	}
	return string(stage)
}

// CanEnter - может ли роль перевести заказ на этап. Неизвестная роль не проходит ни один список.
func CanEnter(stage constants.LabStage, role string) bool {
	def, err := Lookup(stage)
	if err != nil {
		return false
	}
	if len(def.AllowedRoles) == 0 {
		return true
	}
	for _, r := range def.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// NextStage - индекс этапа для движения вперёд с учётом пропуска этапов для цифровых заказов.
func NextStage(order *entities.LabOrder) (int, error) {
	current, ok := IndexOf(order.Stage)
	if !ok {
		return 0, apperrors.ErrUnknownStage
	}

	next := current + 1
	for next < len(registry) && order.IsDigital && registry[next].DigitalSkippable {
		next++
	}
	if next >= len(registry) {
		return 0, apperrors.ErrNoNextStage
	}
	return next, nil
}

// PreviousStage - всегда ровно на один индекс назад, правило пропуска не применяется.
func PreviousStage(order *entities.LabOrder) (int, error) {
	current, ok := IndexOf(order.Stage)
	if !ok {
		return 0, apperrors.ErrUnknownStage
	}
	if current == 0 {
		return 0, apperrors.ErrNoPreviousStage
	}
	return current - 1, nil
}

// skippedBetween - этапы, которые заказ пропустит при переходе from -> to.
func skippedBetween(from, to int) []constants.LabStage {
	var skipped []constants.LabStage
	for i := from + 1; i < to; i++ {
		skipped = append(skipped, registry[i].ID)
	}
	return skipped
}
