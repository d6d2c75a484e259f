package models

import (
	"errors"
	"fmt"
)

// Expected outcome categories. Callers match them with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("authentication required")
)

// ErrDuplicateUsername is returned by CreateUser when the name is taken.
var ErrDuplicateUsername = fmt.Errorf("username %w", ErrConflict)

// UserError pairs an outcome category with the message shown to the user.
type UserError struct {
	Kind    error
	Message string
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Kind }

func Invalid(msg string) error {
	return &UserError{Kind: ErrValidation, Message: msg}
}

func Conflict(msg string) error {
	return &UserError{Kind: ErrConflict, Message: msg}
}

func BadCredentials(msg string) error {
	return &UserError{Kind: ErrInvalidCredentials, Message: msg}
}

// Message returns the user-facing text of err, or "" when err carries none.
func Message(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return ""
}
