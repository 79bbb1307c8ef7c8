// Package events stores the community events that RSVPs attach to.
//
// Only the fields the authorization core reads are modelled: publication
// status, the event date, the RSVP window and the optional seat limit.
// Everything else about an event (venue, agenda, photos) belongs to the
// website.
package events
