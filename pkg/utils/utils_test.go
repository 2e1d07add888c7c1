package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "lab-workflow/pkg/errors"
)

func TestFormatSecondsToHumanReadable(t *testing.T) {
	assert.Equal(t, "0с", FormatSecondsToHumanReadable(0))
	assert.Equal(t, "30м", FormatSecondsToHumanReadable(1800))
	assert.Equal(t, "1д 2ч 3м 4с", FormatSecondsToHumanReadable(93784))
	assert.Equal(t, "-1ч", FormatDuration(-time.Hour))
}

func TestErrorResponse_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperrors.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("commit: %w", apperrors.ErrForbidden), http.StatusForbidden},
		{apperrors.ErrConflict, http.StatusConflict},
		{apperrors.ErrNoNextStage, http.StatusUnprocessableEntity},
		{apperrors.ErrMissingJustification, http.StatusBadRequest},
		{apperrors.ErrEmptyAuthHeader, http.StatusUnauthorized},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	e := echo.New()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, ErrorResponse(c, tc.err, zap.NewNop()))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())

		var body HttpResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Status)
		if tc.code == http.StatusInternalServerError {
			assert.Equal(t, apperrors.ErrInternalServer.Error(), body.Message, "детали сбоя не уходят клиенту")
		}
	}
}

func TestActorContext(t *testing.T) {
	_, err := GetActorRoleFromCtx(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	ctx := WithActor(context.Background(), "user-1", "designer")
	role, err := GetActorRoleFromCtx(ctx)
	require.NoError(t, err)
	assert.Equal(t, "designer", role)
	assert.Equal(t, "user-1", GetUserIDFromCtx(ctx))
}
