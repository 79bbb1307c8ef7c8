package ability

import (
	"context"
	"time"

	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/events"
	"github.com/frontendmu/frontend.mu/pkg/featureflags"
)

// RSVPAuthorizer decides RSVP abilities. Creating an RSVP checks, in order:
// the principal is signed in, the event accepts RSVPs, the event is not in
// the past (unless the past-events flag is on), the closing date has not
// passed, and the principal holds create-rsvp. Each failure has its own
// reason.
type RSVPAuthorizer struct {
	policy
	flags featureflags.Provider
	now   func() time.Time
}

// NewRSVPAuthorizer creates the RSVP authorizer. A nil flags provider means
// every flag is off.
func NewRSVPAuthorizer(checker Checker, flags featureflags.Provider) *RSVPAuthorizer {
	if flags == nil {
		flags = featureflags.Static{}
	}
	return &RSVPAuthorizer{
		policy: newPolicy(ResourceRSVP, checker),
		flags:  flags,
		now:    time.Now,
	}
}

// Authorize implements Authorizer. Create requires the *events.Event, Cancel
// requires the RSVP (any Owned value).
func (a *RSVPAuthorizer) Authorize(ctx context.Context, p *auth.Principal, ab Ability, resource any) (Decision, error) {
	switch ab {
	case Create:
		event, ok := resource.(*events.Event)
		if !ok || event == nil {
			return Deny(ReasonInvalidResource), nil
		}
		return a.authorizeCreate(ctx, p, event)
	case Cancel:
		owned, ok := resource.(Owned)
		if !ok {
			return Deny(ReasonInvalidResource), nil
		}
		if p.IsAnonymous() {
			return Deny(ReasonUnauthenticated), nil
		}
		if !p.Is(owned.OwnerID()) {
			return Deny(ReasonNotOwner), nil
		}
		return a.mapped(ctx, p, Cancel)
	default:
		return a.mapped(ctx, p, ab)
	}
}

func (a *RSVPAuthorizer) authorizeCreate(ctx context.Context, p *auth.Principal, event *events.Event) (Decision, error) {
	if p.IsAnonymous() {
		return Deny(ReasonUnauthenticated), nil
	}

	now := a.now()
	if !event.AcceptingRsvp {
		return Deny(ReasonRsvpNotAccepting), nil
	}
	if event.IsPast(now) && !a.flags.AllowRsvpPastEvents(ctx) {
		return Deny(ReasonEventInPast), nil
	}
	if event.RsvpClosed(now) {
		return Deny(ReasonRsvpClosed), nil
	}
	return a.mapped(ctx, p, Create)
}
