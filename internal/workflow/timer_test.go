package workflow

import (
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/stretchr/testify/assert"

	"lab-workflow/internal/entities"
	"lab-workflow/pkg/constants"
)

func TestToggleTimer_Accumulates(t *testing.T) {
	var timer entities.TimerLedger

	state := ToggleTimer(&timer, t0)
	assert.True(t, state.IsRunning)
	assert.Equal(t, int64(0), state.TotalSeconds)
	assert.Equal(t, null.TimeFrom(t0), timer.LastStart)

	state = ToggleTimer(&timer, t0.Add(30*time.Minute))
	assert.False(t, state.IsRunning)
	assert.Equal(t, int64(1800), state.TotalSeconds)
	assert.False(t, timer.LastStart.Valid)

	ToggleTimer(&timer, t0.Add(time.Hour))
	state = ToggleTimer(&timer, t0.Add(time.Hour+45*time.Second+900*time.Millisecond))
	assert.Equal(t, int64(1845), state.TotalSeconds, "учитываются только целые секунды")
}

func TestToggleTimer_ClockSkewNeverNegative(t *testing.T) {
	timer := entities.TimerLedger{TotalSeconds: 10}
	ToggleTimer(&timer, t0)
	ToggleTimer(&timer, t0.Add(-time.Minute))
	assert.Equal(t, int64(10), timer.TotalSeconds)
}

func TestCurrentElapsed(t *testing.T) {
	timer := entities.TimerLedger{TotalSeconds: 60}
	assert.Equal(t, int64(60), CurrentElapsed(timer, t0))

	timer.IsRunning = true
	timer.LastStart = null.TimeFrom(t0)
	assert.Equal(t, int64(90), CurrentElapsed(timer, t0.Add(30*time.Second)))
	assert.Equal(t, int64(60), timer.TotalSeconds, "чтение не меняет накопитель")
}

func TestStageWorkBreakdown(t *testing.T) {
	records := []entities.StageTransitionRecord{
		{Kind: constants.TransitionForward, FromStage: constants.StageClinicPending, ToStage: constants.StageDigitalPicking, WorkedSeconds: 100},
		{Kind: constants.TransitionPauseRequest, FromStage: constants.StageDigitalPicking, ToStage: constants.StageDigitalPicking, WorkedSeconds: 150},
		{Kind: constants.TransitionForward, FromStage: constants.StageDigitalPicking, ToStage: constants.StageIncomeValidation, WorkedSeconds: 400},
		{Kind: constants.TransitionBackward, FromStage: constants.StageIncomeValidation, ToStage: constants.StageDigitalPicking, WorkedSeconds: 450},
	}
	order := orderAt(constants.StageDigitalPicking, false)
	order.Timer.TotalSeconds = 500

	got := StageWorkBreakdown(records, order, t0)
	assert.Equal(t, []StageWork{
		{Stage: constants.StageClinicPending, Label: Label(constants.StageClinicPending), Seconds: 100},
		{Stage: constants.StageDigitalPicking, Label: Label(constants.StageDigitalPicking), Seconds: 350},
		{Stage: constants.StageIncomeValidation, Label: Label(constants.StageIncomeValidation), Seconds: 50},
	}, got)
}
