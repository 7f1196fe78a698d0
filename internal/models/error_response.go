package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind - класс ошибки, по которому клиент решает, повторять ли запрос.
type ErrorKind string

const (
	KindValidation          ErrorKind = "ValidationError"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindConcurrencyConflict ErrorKind = "ConcurrencyConflict"
	KindNotFound            ErrorKind = "NotFound"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindTimeout             ErrorKind = "Timeout"
)

// Ошибки-образцы для errors.Is: сравнение идёт по Kind.
var (
	ErrValidation          = &ErrorResponse{Kind: KindValidation}
	ErrInvalidTransition   = &ErrorResponse{Kind: KindInvalidTransition}
	ErrConcurrencyConflict = &ErrorResponse{Kind: KindConcurrencyConflict}
	ErrNotFound            = &ErrorResponse{Kind: KindNotFound}
	ErrUnauthorized        = &ErrorResponse{Kind: KindUnauthorized}
	ErrTimeout             = &ErrorResponse{Kind: KindTimeout}
)

// ErrorResponse описывает ошибку с кодом, классом и сообщением.
type ErrorResponse struct {
	StatusCode     int       `json:"-"`
	Kind           ErrorKind `json:"kind"`
	Message        string    `json:"reason"`
	CurrentState   string    `json:"currentState,omitempty"`
	AttemptedState string    `json:"attemptedState,omitempty"`
	ExpectedStates []string  `json:"expectedStates,omitempty"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Kind:       kindForStatus(statusCode),
		Message:    message}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is позволяет сравнивать ошибки через errors.Is по классу.
func (e *ErrorResponse) Is(target error) bool {
	t, ok := target.(*ErrorResponse)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewValidationError возвращает ошибку валидации входных данных.
func NewValidationError(format string, args ...any) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Kind:       KindValidation,
		Message:    fmt.Sprintf(format, args...),
	}
}

// NewNotFoundError возвращает ошибку отсутствия агрегата.
func NewNotFoundError(entity, id string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusNotFound,
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s %s not found", entity, id),
	}
}

// NewUnauthorizedError возвращает ошибку прав доступа.
func NewUnauthorizedError(format string, args ...any) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusForbidden,
		Kind:       KindUnauthorized,
		Message:    fmt.Sprintf(format, args...),
	}
}

// NewConflictError возвращает ошибку устаревшей версии агрегата.
func NewConflictError(entity, id string, expectedVersion int) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusConflict,
		Kind:       KindConcurrencyConflict,
		Message:    fmt.Sprintf("%s %s was modified concurrently (expected version %d)", entity, id, expectedVersion),
	}
}

// NewTimeoutError возвращает ошибку недоступности хранилища.
func NewTimeoutError(op string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: http.StatusServiceUnavailable,
		Kind:       KindTimeout,
		Message:    fmt.Sprintf("repository timeout during %s", op),
	}
}

// NewTransitionError возвращает ошибку недопустимого перехода состояния.
func NewTransitionError[S ~string](entity, id string, current, attempted S, expected []S) *ErrorResponse {
	exp := make([]string, 0, len(expected))
	for _, s := range expected {
		exp = append(exp, string(s))
	}
	msg := fmt.Sprintf("%s %s: cannot move from %s to %s", entity, id, current, attempted)
	if len(exp) > 0 {
		msg += fmt.Sprintf(" (allowed from: %s)", strings.Join(exp, ", "))
	}
	return &ErrorResponse{
		StatusCode:     http.StatusConflict,
		Kind:           KindInvalidTransition,
		Message:        msg,
		CurrentState:   string(current),
		AttemptedState: string(attempted),
		ExpectedStates: exp,
	}
}

// AsErrorResponse достаёт ErrorResponse из цепочки обёрток.
func AsErrorResponse(err error) (*ErrorResponse, bool) {
	var er *ErrorResponse
	if errors.As(err, &er) {
		return er, true
	}
	return nil, false
}

func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusConflict:
		return KindConcurrencyConflict
	case http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindValidation
	}
}

// IsNotFound сообщает, что ошибка означает отсутствие агрегата.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
