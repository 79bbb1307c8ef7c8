package ability

import (
	"context"
	"fmt"

	"github.com/frontendmu/frontend.mu/pkg/auth"
)

// policy is the permission half shared by every authorizer.
type policy struct {
	resource Resource
	checker  Checker
	table    map[Ability]string
}

func newPolicy(res Resource, checker Checker) policy {
	return policy{resource: res, checker: checker, table: permissionTable(res)}
}

func (p policy) Resource() Resource {
	return p.resource
}

// require checks that principal holds permission.
func (p policy) require(ctx context.Context, principal *auth.Principal, permission string) (Decision, error) {
	if principal.IsAnonymous() {
		return Deny(ReasonUnauthenticated), nil
	}
	ok, err := p.checker.Can(ctx, principal, permission)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check %s: %w", permission, err)
	}
	if !ok {
		return DenyPermission(permission), nil
	}
	return Allow(), nil
}

// mapped checks the permission the table assigns to ab.
func (p policy) mapped(ctx context.Context, principal *auth.Principal, ab Ability) (Decision, error) {
	permission, ok := p.table[ab]
	if !ok {
		return Deny(ReasonUnknownAbility), nil
	}
	return p.require(ctx, principal, permission)
}

// contentAuthorizer covers resources whose abilities are pure permission
// checks: sessions, speakers and sponsors.
type contentAuthorizer struct {
	policy
}

// NewSessionAuthorizer creates the session authorizer.
func NewSessionAuthorizer(checker Checker) Authorizer {
	return contentAuthorizer{newPolicy(ResourceSession, checker)}
}

// NewSpeakerAuthorizer creates the speaker authorizer.
func NewSpeakerAuthorizer(checker Checker) Authorizer {
	return contentAuthorizer{newPolicy(ResourceSpeaker, checker)}
}

// NewSponsorAuthorizer creates the sponsor authorizer.
func NewSponsorAuthorizer(checker Checker) Authorizer {
	return contentAuthorizer{newPolicy(ResourceSponsor, checker)}
}

func (a contentAuthorizer) Authorize(ctx context.Context, p *auth.Principal, ab Ability, _ any) (Decision, error) {
	return a.mapped(ctx, p, ab)
}
