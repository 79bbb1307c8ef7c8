package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no event matches the id.
	ErrNotFound = errors.New("event not found")
	// ErrValidation is returned for malformed events.
	ErrValidation = errors.New("invalid event")
)

// Status is the publication state of an event.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPublished, StatusDraft, StatusCancelled:
		return true
	}
	return false
}

// Event is a meetup that members RSVP to.
type Event struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Status          Status     `json:"status"`
	EventDate       time.Time  `json:"event_date"`
	AcceptingRsvp   bool       `json:"accepting_rsvp"`
	RsvpClosingDate *time.Time `json:"rsvp_closing_date,omitempty"`
	// SeatsAvailable is the seat limit. Nil or zero means unlimited.
	SeatsAvailable *int      `json:"seats_available,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsPublished reports whether the event is publicly visible.
func (e *Event) IsPublished() bool {
	return e.Status == StatusPublished
}

// IsPast reports whether the event date is before now.
func (e *Event) IsPast(now time.Time) bool {
	return e.EventDate.Before(now)
}

// RsvpClosed reports whether the RSVP closing date has passed.
func (e *Event) RsvpClosed(now time.Time) bool {
	return e.RsvpClosingDate != nil && e.RsvpClosingDate.Before(now)
}

// HasSeatLimit reports whether admission is capped.
func (e *Event) HasSeatLimit() bool {
	return e.SeatsAvailable != nil && *e.SeatsAvailable > 0
}

// Seats returns the seat limit, or zero when unlimited.
func (e *Event) Seats() int {
	if !e.HasSeatLimit() {
		return 0
	}
	return *e.SeatsAvailable
}

// Validate checks the fields the store persists.
func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %s", ErrValidation, e.Status)
	}
	if e.EventDate.IsZero() {
		return fmt.Errorf("%w: event date is required", ErrValidation)
	}
	if e.SeatsAvailable != nil && *e.SeatsAvailable < 0 {
		return fmt.Errorf("%w: seats available cannot be negative", ErrValidation)
	}
	return nil
}
