// Package service holds the application logic between handlers and
// repositories: the auth core and the travel plan service.
package service

import "errors"

// Auth failures. Handlers map these to status codes and user-facing messages.
var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountDeactivated  = errors.New("account is deactivated")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrIncorrectPassword   = errors.New("current password is incorrect")
)

// Plan failures.
var (
	ErrPlanNotFound = errors.New("travel plan not found")
	ErrItemNotFound = errors.New("plan item not found")
	ErrForbidden    = errors.New("forbidden")
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes malformed input. Msg is safe to show to callers.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
