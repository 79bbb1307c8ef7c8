package auth

import (
	"context"

	"github.com/frontendmu/frontend.mu/pkg/contextkeys"
)

// WithPrincipal stores p in ctx. Storing nil marks the request anonymous.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = contextkeys.WithPrincipal(ctx, p)
	if p != nil {
		ctx = contextkeys.WithUserID(ctx, p.ID.String())
	}
	return ctx
}

// PrincipalFromContext returns the request principal, or nil when the
// request is anonymous.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := contextkeys.Principal(ctx).(*Principal)
	return p
}
