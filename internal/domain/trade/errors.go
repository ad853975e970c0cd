package trade

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by an action wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

// Specializations.
var (
	ErrTradeNotFound       = fmt.Errorf("%w: trade not found", ErrNotFound)
	ErrProductNotFound     = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrPendingChangeExists = fmt.Errorf("%w: an option change request is already pending", ErrInvalidState)
	ErrAlreadySubmitted    = fmt.Errorf("%w: you have already submitted completion for this trade", ErrInvalidState)
	ErrInvalidOffer        = fmt.Errorf("%w: an offer must include at least one of your items or a cash amount", ErrValidation)
	ErrLocationMismatch    = fmt.Errorf("%w: meetup location differs from the location already confirmed", ErrValidation)
)

// Code returns a stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPendingChangeExists):
		return "PENDING_CHANGE_EXISTS"
	case errors.Is(err, ErrAlreadySubmitted):
		return "ALREADY_SUBMITTED"
	case errors.Is(err, ErrInvalidOffer):
		return "INVALID_OFFER"
	case errors.Is(err, ErrLocationMismatch):
		return "LOCATION_MISMATCH"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrValidation):
		return "VALIDATION"
	default:
		return "INTERNAL_ERROR"
	}
}

// IsDomainError reports whether err is one of the protocol error kinds.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrValidation)
}

func forbiddenf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func invalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf builds a not-found error for collaborators outside this package.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Forbiddenf builds a forbidden error for collaborators outside this package.
func Forbiddenf(format string, args ...interface{}) error {
	return forbiddenf(format, args...)
}

// Validationf builds a validation error for collaborators outside this package.
func Validationf(format string, args ...interface{}) error {
	return validationf(format, args...)
}
