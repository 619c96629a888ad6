package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the lifecycle core. Handlers map each kind to an
// HTTP status via Status; everything is recoverable at the caller.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidStep         = errors.New("invalid step")
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrIncompleteData      = errors.New("incomplete data")
	ErrConflict            = errors.New("conflict")
	ErrUnavailable         = errors.New("storage unavailable")
)

// Validationf wraps ErrValidation with a caller-facing detail message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Status maps an error to its HTTP status code. Unknown errors are treated
// as storage/internal failures; we never substitute fabricated data for them.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrInvalidStep),
		errors.Is(err, ErrDuplicateSubmission),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrIncompleteData),
		errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
