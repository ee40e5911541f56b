// Package apperr defines the stable error taxonomy shared by all domain
// services. Handlers translate kinds to HTTP statuses; storage errors are
// wrapped, never surfaced verbatim.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindNotFound covers both absent entities and entities outside the
	// caller's facility scope; the two are indistinguishable to callers.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidState means a precondition on the current status or flags
	// of an entity was not met.
	KindInvalidState Kind = "INVALID_STATE"
	// KindValidation means the input was malformed or cross-referentially
	// invalid (unknown catalog id, clinician outside facility, ...).
	KindValidation Kind = "VALIDATION"
	// KindForbidden means a capability check failed.
	KindForbidden Kind = "FORBIDDEN"
	// KindTimeoutRequired gates the transition to IN_PROGRESS on the
	// timeout checklist.
	KindTimeoutRequired Kind = "TIMEOUT_REQUIRED"
	// KindDebriefRequired gates the transition to COMPLETED on the debrief
	// checklist.
	KindDebriefRequired Kind = "DEBRIEF_REQUIRED"
	// KindInternal wraps storage and infrastructure failures.
	KindInternal Kind = "INTERNAL"
)

// Error carries a stable kind plus a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// E constructs an Error with a formatted message.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause to a kinded error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), wrapped: err}
}

func NotFound(entity string) *Error {
	return E(KindNotFound, "%s not found", entity)
}

func InvalidState(format string, args ...interface{}) *Error {
	return E(KindInvalidState, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return E(KindValidation, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return E(KindForbidden, format, args...)
}

// KindOf extracts the kind from an error chain; unknown errors are internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is lets errors.Is match two taxonomy errors by kind alone.
func (e *Error) Is(target error) bool {
	var ae *Error
	if errors.As(target, &ae) {
		return e.Kind == ae.Kind
	}
	return false
}

// MessageOf returns the human-readable message for callers that must not
// leak internal detail.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}
