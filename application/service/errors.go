package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/free4inno/intenthub/domain/index"
	"github.com/free4inno/intenthub/domain/route"
)

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = errors.New("intenthub: client is closed")

// Kind classifies a service failure. The API layer maps kinds to HTTP
// status codes.
type Kind int

// Failure kinds.
const (
	KindBackend Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindConflict
	KindCancelled
)

// String returns the kind name used in logs and error details.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindCancelled:
		return "cancelled"
	default:
		return "backend"
	}
}

// Error is a classified service failure.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// NewError creates an Error with the given kind and message.
func NewError(kind Kind, message string) *Error {
	return &Error{kind: kind, message: message}
}

// WrapError creates an Error wrapping a cause.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

// Kind returns the failure classification.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the human-readable message.
func (e *Error) Message() string { return e.message }

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error { return e.cause }

// Validation creates a validation Error.
func Validation(message string) *Error {
	return NewError(KindValidation, message)
}

// NotFound creates a not-found Error.
func NotFound(message string) *Error {
	return NewError(KindNotFound, message)
}

// Auth creates an authentication Error.
func Auth(message string) *Error {
	return NewError(KindAuth, message)
}

// Backend creates a backend Error naming the failing component.
func Backend(component string, cause error) *Error {
	return WrapError(KindBackend, fmt.Sprintf("%s unavailable", component), cause)
}

// KindOf classifies an arbitrary error. Domain sentinels and context
// errors map to their kinds; everything unknown is a backend failure.
func KindOf(err error) Kind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind()
	}
	switch {
	case errors.Is(err, route.ErrValidation):
		return KindValidation
	case errors.Is(err, route.ErrNotFound):
		return KindNotFound
	case errors.Is(err, route.ErrConflict):
		return KindConflict
	case errors.Is(err, index.ErrUnavailable):
		return KindBackend
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindBackend
	}
}
