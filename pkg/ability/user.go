package ability

import (
	"context"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/auth"
)

// UserAuthorizer decides user management abilities. Nobody may delete their
// own account through it.
type UserAuthorizer struct {
	policy
}

// NewUserAuthorizer creates the user authorizer.
func NewUserAuthorizer(checker Checker) *UserAuthorizer {
	return &UserAuthorizer{newPolicy(ResourceUser, checker)}
}

// Authorize implements Authorizer. Delete requires the target user as a
// uuid.UUID, *auth.User or *auth.Principal.
func (a *UserAuthorizer) Authorize(ctx context.Context, p *auth.Principal, ab Ability, resource any) (Decision, error) {
	if ab != Delete {
		return a.mapped(ctx, p, ab)
	}

	target, ok := userID(resource)
	if !ok {
		return Deny(ReasonInvalidResource), nil
	}
	if p.IsAnonymous() {
		return Deny(ReasonUnauthenticated), nil
	}
	if p.Is(target) {
		return Deny(ReasonSelfAction), nil
	}
	return a.mapped(ctx, p, Delete)
}

func userID(resource any) (uuid.UUID, bool) {
	switch v := resource.(type) {
	case uuid.UUID:
		return v, v != uuid.Nil
	case *auth.User:
		if v != nil {
			return v.ID, true
		}
	case *auth.Principal:
		if v != nil {
			return v.ID, true
		}
	}
	return uuid.Nil, false
}
