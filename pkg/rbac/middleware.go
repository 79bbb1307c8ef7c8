package rbac

import (
	"context"
	"errors"
	"net/http"

	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/contextkeys"
	"github.com/frontendmu/frontend.mu/pkg/httputil"
)

// WithResolver stores a resolver in the context.
func WithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, contextkeys.ResolverKey, r)
}

// ResolverFromContext returns the request resolver, or nil.
func ResolverFromContext(ctx context.Context) *Resolver {
	r, _ := ctx.Value(contextkeys.ResolverKey).(*Resolver)
	return r
}

// ResolverMiddleware gives every request its own resolver, so grants loaded
// by one request are never served to another.
func ResolverMiddleware(source Source, opts ...ResolverOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// One principal per request; a tiny side-table is enough.
			resolver := NewResolver(source, 4, opts...)
			next.ServeHTTP(w, r.WithContext(WithResolver(r.Context(), resolver)))
		})
	}
}

// PermissionMiddleware guards routes by role or permission. It uses the
// request resolver installed by ResolverMiddleware and falls back to its own.
type PermissionMiddleware struct {
	resolver *Resolver
}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware(fallback *Resolver) *PermissionMiddleware {
	return &PermissionMiddleware{resolver: fallback}
}

// RequirePermission requires the principal to hold permission.
func (pm *PermissionMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return pm.require(permission, func(ctx context.Context, r *Resolver, p *auth.Principal) (bool, error) {
		return r.Can(ctx, p, permission)
	})
}

// RequireAny requires at least one of permissions.
func (pm *PermissionMiddleware) RequireAny(permissions ...string) func(http.Handler) http.Handler {
	return pm.require("", func(ctx context.Context, r *Resolver, p *auth.Principal) (bool, error) {
		return r.CanAny(ctx, p, permissions...)
	})
}

// RequireAll requires every one of permissions.
func (pm *PermissionMiddleware) RequireAll(permissions ...string) func(http.Handler) http.Handler {
	return pm.require("", func(ctx context.Context, r *Resolver, p *auth.Principal) (bool, error) {
		return r.CanAll(ctx, p, permissions...)
	})
}

// RequireRole requires the named role.
func (pm *PermissionMiddleware) RequireRole(role string) func(http.Handler) http.Handler {
	return pm.require("", func(ctx context.Context, r *Resolver, p *auth.Principal) (bool, error) {
		return r.HasRole(ctx, p, role)
	})
}

func (pm *PermissionMiddleware) require(permission string, check func(context.Context, *Resolver, *auth.Principal) (bool, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				httputil.WriteDenied(w, http.StatusUnauthorized, "unauthenticated", permission)
				return
			}

			resolver := ResolverFromContext(r.Context())
			if resolver == nil {
				resolver = pm.resolver
			}
			if resolver == nil {
				httputil.WriteInternalError(w, errors.New("no resolver configured"))
				return
			}

			ok, err := check(r.Context(), resolver, principal)
			if err != nil {
				httputil.WriteServiceUnavailable(w, "permission check failed")
				return
			}
			if !ok {
				httputil.WriteDenied(w, http.StatusForbidden, "missing_permission", permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
