package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateIdentity  = errors.New("username or email already exists")
	ErrNoFields           = errors.New("no fields to update")
	ErrMissingToken       = errors.New("no token provided")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("access denied")
	ErrNotFound           = errors.New("not found")
	ErrTooManyAttempts    = errors.New("too many failed login attempts, try again later")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the name of the missing record, e.g. "booking not found".
func NotFound(label string) error {
	return fmt.Errorf("%s %w", label, ErrNotFound)
}
