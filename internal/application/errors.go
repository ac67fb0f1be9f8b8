package application

import (
	"errors"
	"strings"
)

// Service failure taxonomy. Handlers map these to status codes and the
// {"errors": ...} envelope; anything outside it is an internal error.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("account not found")
	ErrConflict           = errors.New("email already registered")
	ErrInvalidToken       = errors.New("reset token invalid or expired")
)

// NonFieldKey buckets validation failures not tied to one field.
const NonFieldKey = "non_field_errors"

// FieldErrors carries field-level validation messages as an error value, so
// expected validation failures travel the same return path as everything else.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func nonFieldError(msg string) FieldErrors {
	return FieldErrors{NonFieldKey: {msg}}
}
