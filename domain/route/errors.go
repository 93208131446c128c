package route

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across layers.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("route not found")
	ErrConflict   = errors.New("conflicting write")
)

// ValidationError describes a rejected route payload.
type ValidationError struct {
	message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{message: message}
}

// Message returns the human-readable reason.
func (e *ValidationError) Message() string { return e.message }

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError identifies a missing route.
type NotFoundError struct {
	id int
}

// NewNotFoundError creates a NotFoundError for the given route id.
func NewNotFoundError(id int) *NotFoundError {
	return &NotFoundError{id: id}
}

// ID returns the missing route id.
func (e *NotFoundError) ID() int { return e.id }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("route %d not found", e.id)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
