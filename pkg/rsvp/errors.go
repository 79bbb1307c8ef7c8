package rsvp

import (
	"errors"
	"fmt"

	"github.com/frontendmu/frontend.mu/pkg/ability"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotAuthorized    = errors.New("not authorized")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Error is the failure result of an RSVP operation.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Decision is the denial behind ErrNotAuthorized.
	Decision ability.Decision
	// Existing is the RSVP that caused ErrConflict.
	Existing *RSVP
	// Detail describes the failure for logs.
	Detail string
	// Err is the underlying cause, for ErrStoreUnavailable.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Kind == ErrNotAuthorized && e.Decision.Reason != "" {
		msg += ": " + string(e.Decision.Reason)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the user-facing explanation.
func (e *Error) Message() string {
	switch e.Kind {
	case ErrNotAuthorized:
		return e.Decision.Reason.Message()
	case ErrNotFound:
		return "RSVP not found."
	case ErrConflict:
		if e.Existing != nil && e.Existing.Status == StatusCancelled {
			return "This RSVP has already been cancelled."
		}
		return "You have already RSVPd to this event."
	case ErrValidation:
		return "Invalid RSVP request."
	default:
		return "RSVPs are temporarily unavailable."
	}
}

func denied(d ability.Decision) *Error {
	return &Error{Kind: ErrNotAuthorized, Decision: d}
}

func notFound(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Detail: fmt.Sprintf(format, args...)}
}

func conflict(existing *RSVP) *Error {
	return &Error{Kind: ErrConflict, Existing: existing, Detail: fmt.Sprintf("rsvp %s is %s", existing.ID, existing.Status)}
}

func unavailable(err error) *Error {
	return &Error{Kind: ErrStoreUnavailable, Err: err}
}

// asError passes *Error values through and wraps anything else as
// ErrStoreUnavailable.
func asError(err error) error {
	if err == nil {
		return nil
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return unavailable(err)
}
