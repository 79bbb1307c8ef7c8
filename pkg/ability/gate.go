package ability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frontendmu/frontend.mu/pkg/audit"
	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/events"
	"github.com/frontendmu/frontend.mu/pkg/featureflags"
	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// Gate dispatches ability checks to the authorizer of each resource type.
// Every decision is counted, and denials are written to the audit trail in
// the context.
type Gate struct {
	authorizers map[Resource]Authorizer
	metrics     *observability.Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithMetrics records decisions in m.
func WithMetrics(m *observability.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// WithAuthorizer replaces the authorizer for a.Resource().
func WithAuthorizer(a Authorizer) GateOption {
	return func(g *Gate) { g.authorizers[a.Resource()] = a }
}

// WithClock sets the clock the RSVP authorizer compares event dates with.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if a, ok := g.authorizers[ResourceRSVP].(*RSVPAuthorizer); ok {
			a.now = now
		}
	}
}

// NewGate creates a gate with the authorizers of every resource type.
func NewGate(checker Checker, flags featureflags.Provider, opts ...GateOption) *Gate {
	g := &Gate{authorizers: make(map[Resource]Authorizer)}
	for _, a := range []Authorizer{
		NewEventAuthorizer(checker),
		NewSessionAuthorizer(checker),
		NewSpeakerAuthorizer(checker),
		NewSponsorAuthorizer(checker),
		NewUserAuthorizer(checker),
		NewRSVPAuthorizer(checker, flags),
	} {
		g.authorizers[a.Resource()] = a
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// For returns the authorizer of res, or nil.
func (g *Gate) For(res Resource) Authorizer {
	return g.authorizers[res]
}

// Authorize decides whether p may perform ab on resource, an instance of
// res.
func (g *Gate) Authorize(ctx context.Context, p *auth.Principal, res Resource, ab Ability, resource any) (decision Decision, err error) {
	ctx, span := observability.StartSpan(ctx, "ability.authorize",
		attribute.String("resource", string(res)),
		attribute.String("ability", string(ab)),
	)
	defer func() {
		span.SetAttributes(attribute.Bool("allowed", decision.Allowed))
		observability.EndSpan(span, err)
	}()

	a, ok := g.authorizers[res]
	if !ok {
		decision = Deny(ReasonUnknownAbility)
	} else {
		decision, err = a.Authorize(ctx, p, ab, resource)
		if err != nil {
			return Decision{}, err
		}
	}

	g.metrics.Decision(string(res), string(ab), decision.Allowed, string(decision.Reason))
	if !decision.Allowed {
		g.logDenied(ctx, p, res, ab, resource, decision)
	}
	return decision, nil
}

// Allows is Authorize reduced to a boolean; store failures deny.
func (g *Gate) Allows(ctx context.Context, p *auth.Principal, res Resource, ab Ability, resource any) bool {
	decision, err := g.Authorize(ctx, p, res, ab, resource)
	return err == nil && decision.Allowed
}

func (g *Gate) logDenied(ctx context.Context, p *auth.Principal, res Resource, ab Ability, resource any, decision Decision) {
	var userID *uuid.UUID
	if !p.IsAnonymous() {
		id := p.ID
		userID = &id
	}

	reason := fmt.Sprintf("%s %s: %s", ab, res, decision)
	if err := audit.LogDenied(ctx, userID, audit.ResourceType(res), resourceID(resource), reason); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("Failed to write audit event")
	}
}

// Identified is implemented by resources that name themselves in the audit
// trail.
type Identified interface {
	ResourceID() string
}

func resourceID(resource any) string {
	switch v := resource.(type) {
	case Identified:
		return v.ResourceID()
	case *events.Event:
		if v != nil {
			return v.ID.String()
		}
	case uuid.UUID:
		return v.String()
	case *auth.User:
		if v != nil {
			return v.ID.String()
		}
	}
	return ""
}
