package ability

import (
	"context"

	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/events"
)

// EventAuthorizer decides event abilities. Viewing a published event is
// allowed for everyone, including anonymous principals.
type EventAuthorizer struct {
	policy
}

// NewEventAuthorizer creates the event authorizer.
func NewEventAuthorizer(checker Checker) *EventAuthorizer {
	return &EventAuthorizer{newPolicy(ResourceEvent, checker)}
}

// Authorize implements Authorizer. View requires an *events.Event.
func (a *EventAuthorizer) Authorize(ctx context.Context, p *auth.Principal, ab Ability, resource any) (Decision, error) {
	if ab != View {
		return a.mapped(ctx, p, ab)
	}

	event, ok := resource.(*events.Event)
	if !ok || event == nil {
		return Deny(ReasonInvalidResource), nil
	}
	if event.IsPublished() {
		return Allow(), nil
	}
	if p.IsAnonymous() {
		return Deny(ReasonEventNotPublished), nil
	}
	return a.mapped(ctx, p, View)
}
