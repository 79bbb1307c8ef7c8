package rsvp

import (
	"time"

	"github.com/google/uuid"
)

// Status is the state of an RSVP.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusWaitlist  Status = "waitlist"
	StatusCancelled Status = "cancelled"
)

// RSVP is one principal's response to one event.
type RSVP struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	EventID   uuid.UUID `json:"event_id"`
	Status    Status    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID returns the user the RSVP belongs to.
func (r *RSVP) OwnerID() uuid.UUID {
	if r == nil {
		return uuid.Nil
	}
	return r.UserID
}

// ResourceID names the RSVP in the audit trail.
func (r *RSVP) ResourceID() string {
	if r == nil {
		return ""
	}
	return r.ID.String()
}

// Active reports whether the RSVP holds or waits for a seat.
func (r *RSVP) Active() bool {
	return r.Status != StatusCancelled
}

// Transition is the result of a successful state change.
type Transition struct {
	// RSVP is the row after the change.
	RSVP *RSVP `json:"rsvp"`
	// Previous is the status before the change; empty for a new row.
	Previous Status `json:"previous,omitempty"`
	// Reactivated is set when Create reused a cancelled row.
	Reactivated bool `json:"reactivated,omitempty"`
	// Promoted is the waitlisted RSVP confirmed by a cancellation, if any.
	Promoted *RSVP `json:"promoted,omitempty"`
}

// Message is the user-facing summary of the transition.
func (t *Transition) Message() string {
	switch {
	case t.RSVP.Status == StatusCancelled:
		return "Your RSVP has been cancelled."
	case t.RSVP.Status == StatusWaitlist:
		return "The event is full. You have been added to the waitlist."
	case t.Reactivated:
		return "Your RSVP has been reactivated."
	default:
		return "You have successfully RSVPd to this event!"
	}
}

// StatusResult answers whether a principal holds an active RSVP.
type StatusResult struct {
	HasRSVP bool  `json:"has_rsvp"`
	RSVP    *RSVP `json:"rsvp"`
}
