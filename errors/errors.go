package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized covers unauthenticated callers and sessions acting
	// on rooms or projects they are not a member of.
	ErrUnauthorized = fmt.Errorf("unauthorized")
	// ErrForbidden covers authenticated callers lacking permission,
	// e.g. editing another user's message.
	ErrForbidden   = fmt.Errorf("forbidden")
	ErrNotFound    = fmt.Errorf("not found")
	ErrValidation  = fmt.Errorf("validation error")
	ErrPersistence = fmt.Errorf("persistence failure")

	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrSessionClosed = fmt.Errorf("session closed")
	ErrQueueFull     = fmt.Errorf("session send queue full")
)

// CodeOf maps a domain error to its wire code, used by the error event
// sent back to the originating session. Unknown errors are reported as
// internal without leaking details to the client.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "internal"
	}
}
