package workflow

import (
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestComputeTargetDate_BusinessDayWalk(t *testing.T) {
	friday := day(2024, time.March, 8, 14)
	monday := day(2024, time.March, 4, 9)

	assert.Equal(t, day(2024, time.March, 11, 14), ComputeTargetDate(friday, 1, nil))
	assert.Equal(t, day(2024, time.March, 11, 9), ComputeTargetDate(monday, 5, nil))
	assert.Equal(t, day(2024, time.March, 7, 9), ComputeTargetDate(monday, 3, nil))
	assert.Equal(t, monday, ComputeTargetDate(monday, 0, nil))

	saturday := day(2024, time.March, 9, 10)
	assert.Equal(t, day(2024, time.March, 11, 10), ComputeTargetDate(saturday, 1, nil))
}

func TestComputeTargetDate_Holidays(t *testing.T) {
	cal := NewCalendar([]time.Time{day(2024, time.March, 5, 0)})
	monday := day(2024, time.March, 4, 9)

	assert.False(t, cal.IsBusinessDay(day(2024, time.March, 5, 12)))
	assert.Equal(t, day(2024, time.March, 6, 9), ComputeTargetDate(monday, 1, cal))
	// праздник из файла не повторяется в следующем году
	assert.True(t, cal.IsBusinessDay(day(2025, time.March, 5, 12)))
	assert.False(t, cal.IsBusinessDay(day(2024, time.March, 9, 12)), "выходные остаются выходными")
}

func TestTargetDeliveryDate_ManualOverride(t *testing.T) {
	manual := day(2024, time.March, 9, 18) // суббота, используется как есть
	order := &entities.LabOrder{CreatedAt: day(2024, time.March, 4, 9), SLABusinessDays: 3, ManualDeliveryDate: null.TimeFrom(manual)}
	assert.Equal(t, manual, TargetDeliveryDate(order, nil))
}

func TestRemainingTime_PauseFreezesClock(t *testing.T) {
	order := &entities.LabOrder{CreatedAt: day(2024, time.March, 4, 9), SLABusinessDays: 3}
	target := day(2024, time.March, 7, 9)

	now := day(2024, time.March, 5, 9)
	before := RemainingTime(order, now, nil)
	assert.Equal(t, target.Sub(now), before)

	order.IsPaused = true
	order.PausedAt = null.TimeFrom(now)
	later := now.Add(6 * time.Hour)
	assert.Equal(t, before, RemainingTime(order, later, nil), "на паузе часы стоят")

	_, err := ResumeFromPause(order, constants.RoleProductionTech, later)
	assert.NoError(t, err)
	assert.Equal(t, before, RemainingTime(order, later, nil), "после возобновления пауза не засчитана")
	assert.Equal(t, before-time.Hour, RemainingTime(order, later.Add(time.Hour), nil))
}

func TestRemainingTime_OverdueNotClamped(t *testing.T) {
	order := &entities.LabOrder{CreatedAt: day(2024, time.March, 4, 9), SLABusinessDays: 1}
	remaining := RemainingTime(order, day(2024, time.March, 6, 9), nil)
	assert.Equal(t, -24*time.Hour, remaining)
	assert.Equal(t, constants.SLAOverdue, SLAStatus(remaining, 24*time.Hour))
}

func TestSLAStatus(t *testing.T) {
	assert.Equal(t, constants.SLAOnTrack, SLAStatus(48*time.Hour, 24*time.Hour))
	assert.Equal(t, constants.SLAAtRisk, SLAStatus(24*time.Hour, 24*time.Hour))
	assert.Equal(t, constants.SLAAtRisk, SLAStatus(0, 24*time.Hour))
	assert.Equal(t, constants.SLAOverdue, SLAStatus(-time.Second, 24*time.Hour))
}

func TestStageSLAStatus(t *testing.T) {
	cfg := &entities.StageSLAConfig{Stage: constants.StageDesign, TargetHours: 8, WarningHours: 6, IsActive: true}

	assert.Equal(t, constants.StageSLAOk, StageSLAStatus(time.Hour, cfg))
	assert.Equal(t, constants.StageSLAWarning, StageSLAStatus(6*time.Hour, cfg))
	assert.Equal(t, constants.StageSLABreached, StageSLAStatus(8*time.Hour, cfg))
	assert.Equal(t, constants.StageSLADisabled, StageSLAStatus(time.Hour, nil))

	cfg.IsActive = false
	assert.Equal(t, constants.StageSLADisabled, StageSLAStatus(100*time.Hour, cfg))
}

func TestStageDwell(t *testing.T) {
	order := &entities.LabOrder{StageEnteredAt: t0}
	assert.Equal(t, 2*time.Hour, StageDwell(order, t0.Add(2*time.Hour)))

	order.IsPaused = true
	order.PausedAt = null.TimeFrom(t0.Add(time.Hour))
	assert.Equal(t, time.Hour, StageDwell(order, t0.Add(5*time.Hour)))
}

func TestSLABusinessDaysFor(t *testing.T) {
	assert.Equal(t, 5, SLABusinessDaysFor(5, []int{7}, constants.PriorityUrgent))
	assert.Equal(t, 7, SLABusinessDaysFor(0, []int{2, 7, 4}, constants.PriorityUrgent))
	assert.Equal(t, 1, SLABusinessDaysFor(0, nil, constants.PriorityUrgent))
	assert.Equal(t, 3, SLABusinessDaysFor(0, []int{0}, constants.PriorityLow))
	assert.Equal(t, 2, SLABusinessDaysFor(0, nil, "unknown"))
}

func TestSLARemainingPercent(t *testing.T) {
	order := &entities.LabOrder{CreatedAt: day(2024, time.March, 4, 9), SLABusinessDays: 2}

	assert.Equal(t, 100.0, SLARemainingPercent(order, day(2024, time.March, 4, 9), nil))
	assert.InDelta(t, 50.0, SLARemainingPercent(order, day(2024, time.March, 5, 9), nil), 0.001)
	assert.Equal(t, 0.0, SLARemainingPercent(order, day(2024, time.March, 7, 9), nil), "просрочка не уходит в минус")

	order.ManualDeliveryDate = null.TimeFrom(day(2024, time.March, 4, 8))
	assert.Equal(t, 0.0, SLARemainingPercent(order, day(2024, time.March, 4, 10), nil))

	order.ManualDeliveryDate = null.TimeFrom(day(2024, time.March, 4, 12))
	order.CreatedAt = day(2024, time.March, 4, 13)
	assert.Equal(t, 100.0, SLARemainingPercent(order, day(2024, time.March, 4, 11), nil))
}
