package service

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the caller may not act on a resource.
var ErrForbidden = errors.New("only the event organizer can do that")

// ErrFacultyOnly is returned when a student calls an organizer operation.
var ErrFacultyOnly = errors.New("only faculty can organize events")

// ErrUnauthorized is returned when a request carries no valid identity.
var ErrUnauthorized = errors.New("authentication required")

// ErrInvalidCredentials is returned by Login for any credential mismatch.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ValidationError reports a malformed request. Its message is safe to show
// to clients.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
