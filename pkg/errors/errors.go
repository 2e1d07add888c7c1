package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// JWT и токены
	ErrInvalidSigningMethod = fmt.Errorf("неверный метод подписи токена")
	ErrInvalidToken         = fmt.Errorf("недопустимый токен")
	ErrTokenExpired         = fmt.Errorf("срок действия токена истёк")

	// Авторизация
	ErrEmptyAuthHeader   = fmt.Errorf("заголовок авторизации отсутствует")
	ErrInvalidAuthHeader = fmt.Errorf("неверный формат заголовка авторизации")
	ErrUnauthorized      = fmt.Errorf("неавторизован")
	ErrForbidden         = fmt.Errorf("доступ запрещён")

	// Конвейер лаборатории
	ErrOrderNotFound        = fmt.Errorf("заказ не найден")
	ErrOrderExists          = fmt.Errorf("заказ с таким ID уже зарегистрирован")
	ErrUnknownStage         = fmt.Errorf("неизвестный этап")
	ErrNoNextStage          = fmt.Errorf("заказ уже на последнем этапе")
	ErrNoPreviousStage      = fmt.Errorf("заказ уже на первом этапе")
	ErrStageUnchanged       = fmt.Errorf("заказ уже находится на этом этапе")
	ErrInvalidTransition    = fmt.Errorf("переход вперёд возможен только на следующий этап")
	ErrMissingJustification = fmt.Errorf("для возврата на предыдущий этап укажите причину")
	ErrMissingReason        = fmt.Errorf("для запроса паузы укажите причину")
	ErrAlreadyPaused        = fmt.Errorf("заказ уже на паузе или запрос паузы уже отправлен")
	ErrNotPaused            = fmt.Errorf("заказ не на паузе")
	ErrNoPendingPause       = fmt.Errorf("нет ожидающего запроса паузы")
	ErrConflict             = fmt.Errorf("заказ был изменён другим пользователем, обновите данные")
	ErrVersionRequired      = fmt.Errorf("для смены этапа укажите версию заказа, которую вы видели")

	// Общие
	ErrNotFound       = fmt.Errorf("запись не найдена")
	ErrBadRequest     = fmt.Errorf("неверный запрос")
	ErrInternalServer = fmt.Errorf("внутренняя ошибка сервера")
)

// IsNoOp - ошибка означает "ничего не изменилось", а не сбой.
func IsNoOp(err error) bool {
	return errors.Is(err, ErrNoNextStage) || errors.Is(err, ErrNoPreviousStage) || errors.Is(err, ErrStageUnchanged)
}

// Кастомные типы ошибок
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// HttpError - ошибка с HTTP-кодом и сообщением для пользователя.
type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

// StatusCode подбирает HTTP-код для доменной ошибки.
func StatusCode(err error) int {
	var httpErr *HttpError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrEmptyAuthHeader), errors.Is(err, ErrInvalidAuthHeader),
		errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrInvalidSigningMethod):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyPaused), errors.Is(err, ErrOrderExists),
		errors.Is(err, ErrNotPaused), errors.Is(err, ErrNoPendingPause):
		return http.StatusConflict
	case IsNoOp(err), errors.Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrMissingJustification), errors.Is(err, ErrMissingReason),
		errors.Is(err, ErrUnknownStage), errors.Is(err, ErrVersionRequired), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
