package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNotLoaded            = errors.New("frame catalogue not loaded")
	ErrLoadFailed           = errors.New("frame catalogue load failed")
	ErrDegenerateStatistics = errors.New("degenerate population statistics")
	ErrDuplicateFrame       = errors.New("duplicate frame tuple")
	ErrInvalidRecord        = errors.New("invalid frame record")
	ErrInvalidInput         = errors.New("invalid input")
	ErrSourceUnavailable    = errors.New("frame source unavailable")
	ErrInternal             = errors.New("internal error")
	ErrTimeout              = errors.New("operation timed out")
	ErrRateLimited          = errors.New("rate limit exceeded")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error chain onto the status code the API answers
// with. Domain errors opt in by implementing Is against the sentinels above.
// A failed load is a 502 whatever caused it.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrLoadFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicateFrame):
		return http.StatusConflict
	case errors.Is(err, ErrDegenerateStatistics):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotLoaded), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrInvalidRecord):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
