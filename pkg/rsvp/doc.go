// Package rsvp implements the RSVP lifecycle of an event: confirmed,
// waitlisted and cancelled RSVPs, seat admission control and first-in
// first-out waitlist promotion.
//
// A principal has at most one RSVP row per event. Cancelling keeps the row,
// and a later Create reactivates it. When an event has a seat limit, Create
// waitlists the RSVP once the confirmed count reaches the limit, and each
// cancellation promotes the oldest waitlisted RSVP (by creation time, then
// id). Reconcile fills seats freed by a raised or removed limit.
//
// Admission and promotion run in one transaction that locks the event row,
// so concurrent creates and cancels on the same event are serialised: the
// last seat is never given out twice and one cancellation never promotes
// twice.
//
// Every entry point returns either a *Transition or an *Error whose Kind is
// one of ErrNotAuthorized, ErrNotFound, ErrConflict, ErrValidation or
// ErrStoreUnavailable:
//
//	t, err := service.Create(ctx, principal, eventID, "")
//	switch {
//	case errors.Is(err, rsvp.ErrConflict):
//		// err.(*rsvp.Error).Existing is the RSVP already held
//	case err != nil:
//		// ...
//	case t.RSVP.Status == rsvp.StatusWaitlist:
//		// event full
//	}
package rsvp
