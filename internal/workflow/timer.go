package workflow

import (
	"time"

	"github.com/aarondl/null/v8"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
)

// TimerState - ответ на переключение таймера.
type TimerState struct {
	TotalSeconds   int64     `json:"total_seconds"`
	IsRunning      bool      `json:"is_running"`
	LastStart      null.Time `json:"last_start"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
}

// ToggleTimer всегда меняет состояние: запуск или остановка с добавлением прошедшего времени.
func ToggleTimer(timer *entities.TimerLedger, now time.Time) TimerState {
	if !timer.IsRunning {
		timer.IsRunning = true
		timer.LastStart = null.TimeFrom(now)
	} else {
		timer.TotalSeconds += sessionSeconds(*timer, now)
		timer.IsRunning = false
		timer.LastStart = null.Time{}
	}
	return StateOf(*timer, now)
}

// CurrentElapsed - накопленное время плюс открытая сессия. Только чтение.
func CurrentElapsed(timer entities.TimerLedger, now time.Time) int64 {
	if !timer.IsRunning {
		return timer.TotalSeconds
	}
	return timer.TotalSeconds + sessionSeconds(timer, now)
}

func StateOf(timer entities.TimerLedger, now time.Time) TimerState {
	return TimerState{
		TotalSeconds:   timer.TotalSeconds,
		IsRunning:      timer.IsRunning,
		LastStart:      timer.LastStart,
		ElapsedSeconds: CurrentElapsed(timer, now),
	}
}

// sessionSeconds не бывает отрицательным: сдвиг часов назад не уменьшает итог.
func sessionSeconds(timer entities.TimerLedger, now time.Time) int64 {
	if !timer.LastStart.Valid {
		return 0
	}
	d := now.Sub(timer.LastStart.Time)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// StageWork - отработанное время на одном этапе.
type StageWork struct {
	Stage   constants.LabStage `json:"stage"`
	Label   string             `json:"label"`
	Seconds int64              `json:"seconds"`
}

// StageWorkBreakdown раскладывает время таймера по этапам по снимкам worked_seconds
// в записях о смене этапа. Записи должны идти в хронологическом порядке.
func StageWorkBreakdown(records []entities.StageTransitionRecord, order *entities.LabOrder, now time.Time) []StageWork {
	perStage := make(map[constants.LabStage]int64)
	var seen []constants.LabStage
	add := func(stage constants.LabStage, seconds int64) {
		if _, ok := perStage[stage]; !ok {
			seen = append(seen, stage)
			perStage[stage] = 0
		}
		if seconds > 0 {
			perStage[stage] += seconds
		}
	}

	var last int64
	for _, rec := range records {
		if !rec.Kind.IsStageChange() {
			continue
		}
		add(rec.FromStage, rec.WorkedSeconds-last)
		last = rec.WorkedSeconds
	}
	add(order.Stage, CurrentElapsed(order.Timer, now)-last)

	out := make([]StageWork, 0, len(seen))
	for _, stage := range seen {
		out = append(out, StageWork{Stage: stage, Label: Label(stage), Seconds: perStage[stage]})
	}
	return out
}
