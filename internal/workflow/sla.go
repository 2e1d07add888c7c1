package workflow

import (
	"time"

	"github.com/rickar/cal/v2"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
)

// Calendar - производственный календарь: выходные Сб/Вс плюс праздники.
type Calendar struct {
	bc *cal.BusinessCalendar
}

// weekendsOnly используется для nil-календаря.
var weekendsOnly = cal.NewBusinessCalendar()

func NewCalendar(holidays []time.Time) *Calendar {
	bc := cal.NewBusinessCalendar()
	for _, h := range holidays {
		// праздник из файла действует только в своем году
		bc.AddHoliday(&cal.Holiday{
			Name:      h.Format("2006-01-02"),
			Month:     h.Month(),
			Day:       h.Day(),
			StartYear: h.Year(),
			EndYear:   h.Year(),
			Func:      cal.CalcDayOfMonth,
		})
	}
	return &Calendar{bc: bc}
}

// IsBusinessDay. nil-календарь означает "без праздников".
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if c == nil {
		return weekendsOnly.IsWorkday(t)
	}
	return c.bc.IsWorkday(t)
}

// ComputeTargetDate отсчитывает businessDays рабочих дней от createdAt.
// Время суток сохраняется; 0 дней - сам момент создания.
func ComputeTargetDate(createdAt time.Time, businessDays int, calendar *Calendar) time.Time {
	target := createdAt
	for added := 0; added < businessDays; {
		target = target.AddDate(0, 0, 1)
		if calendar.IsBusinessDay(target) {
			added++
		}
	}
	return target
}

// TargetDeliveryDate - ручная дата (экспресс) используется как есть.
func TargetDeliveryDate(order *entities.LabOrder, calendar *Calendar) time.Time {
	if order.ManualDeliveryDate.Valid {
		return order.ManualDeliveryDate.Time
	}
	return ComputeTargetDate(order.CreatedAt, order.SLABusinessDays, calendar)
}

// RemainingTime - сколько осталось до срока. На паузе часы SLA стоят,
// отрицательное значение означает просрочку и не обрезается.
func RemainingTime(order *entities.LabOrder, now time.Time, calendar *Calendar) time.Duration {
	effectiveNow := now
	if order.IsPaused && order.PausedAt.Valid {
		effectiveNow = order.PausedAt.Time
	}
	return TargetDeliveryDate(order, calendar).Sub(effectiveNow) + order.PausedDuration()
}

// SLARemainingPercent - доля срока заказа, которая еще не израсходована, 0..100.
// Просроченный заказ дает 0. Если срок не длиннее момента создания (ручная дата в прошлом),
// заказ считается либо целиком в сроке, либо просроченным.
func SLARemainingPercent(order *entities.LabOrder, now time.Time, calendar *Calendar) float64 {
	remaining := RemainingTime(order, now, calendar)
	if remaining <= 0 {
		return 0
	}
	span := TargetDeliveryDate(order, calendar).Sub(order.CreatedAt)
	if span <= 0 {
		return 100
	}
	pct := float64(remaining) / float64(span) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

func SLAStatus(remaining, warningWindow time.Duration) string {
	switch {
	case remaining < 0:
		return constants.SLAOverdue
	case remaining <= warningWindow:
		return constants.SLAAtRisk
	default:
		return constants.SLAOnTrack
	}
}

// StageDwell - сколько заказ находится на текущем этапе (на паузе - до начала паузы).
func StageDwell(order *entities.LabOrder, now time.Time) time.Duration {
	end := now
	if order.IsPaused && order.PausedAt.Valid {
		end = order.PausedAt.Time
	}
	d := end.Sub(order.StageEnteredAt)
	if d < 0 {
		return 0
	}
	return d
}

func StageSLAStatus(dwell time.Duration, cfg *entities.StageSLAConfig) string {
	if cfg == nil || !cfg.IsActive || cfg.TargetHours <= 0 {
		return constants.StageSLADisabled
	}
	if dwell >= time.Duration(cfg.TargetHours)*time.Hour {
		return constants.StageSLABreached
	}
	if cfg.WarningHours > 0 && dwell >= time.Duration(cfg.WarningHours)*time.Hour {
		return constants.StageSLAWarning
	}
	return constants.StageSLAOk
}

// SLABusinessDaysFor выбирает срок заказа: явное значение, иначе максимум по позициям,
// иначе значение по приоритету.
func SLABusinessDaysFor(explicit int, itemDays []int, priority constants.LabPriority) int {
	if explicit > 0 {
		return explicit
	}
	longest := 0
	for _, d := range itemDays {
		if d > longest {
			longest = d
		}
	}
	if longest > 0 {
		return longest
	}
	if d, ok := constants.DefaultSLABusinessDays[priority]; ok {
		return d
	}
	return constants.DefaultSLABusinessDays[constants.PriorityNormal]
}
