package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "lab-workflow/pkg/errors"
)

type HttpResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HttpResponse{
		Status:  true,
		Body:    body,
		Message: message,
	})
}

// ErrorResponse подбирает код ответа по доменной ошибке. 5xx логируются,
// клиенту отдаётся обезличенное сообщение.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, fmt.Sprintf("Поле '%s' не прошло проверку '%s'", e.Field(), e.Tag()))
		}
		return c.JSON(http.StatusBadRequest, &HttpResponse{Status: false, Message: "Ошибка валидации: " + strings.Join(msgs, "; ")})
	}

	code := apperrors.StatusCode(err)
	message := err.Error()
	var details interface{}

	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		message = httpErr.Message
		details = httpErr.Details
	}

	if code >= http.StatusInternalServerError {
		logger.Error("Внутренняя ошибка",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
		if httpErr == nil {
			message = apperrors.ErrInternalServer.Error()
		}
	}

	return c.JSON(code, &HttpResponse{Status: false, Body: details, Message: message})
}
