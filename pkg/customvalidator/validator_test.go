package customvalidator

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Stage    string `validate:"required,lab_stage"`
	Priority string `validate:"lab_priority"`
	Reason   string `validate:"not_blank"`
}

func TestCustomValidations(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomValidations(v))

	assert.NoError(t, v.Struct(sample{Stage: "design", Priority: "urgent", Reason: "ok"}))
	assert.NoError(t, v.Struct(sample{Stage: "qa", Reason: "ok"}))
	assert.Error(t, v.Struct(sample{Stage: "polishing", Reason: "ok"}))
	assert.Error(t, v.Struct(sample{Stage: "qa", Priority: "asap", Reason: "ok"}))
	assert.Error(t, v.Struct(sample{Stage: "qa", Reason: "   "}))
}
