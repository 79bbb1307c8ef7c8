package middleware

import (
	"net/http"

	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/httputil"
	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// DefaultSessionCookie is the cookie set by the login flow.
const DefaultSessionCookie = "frontendmu_session"

// SessionOptions configures SessionMiddleware.
type SessionOptions struct {
	// CookieName defaults to DefaultSessionCookie.
	CookieName string
	// Optional lets requests without a valid session through as anonymous.
	// When false they are rejected with 401.
	Optional bool
}

// SessionMiddleware resolves the session cookie into the request principal.
type SessionMiddleware struct {
	provider auth.Provider
	cookie   string
	optional bool
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(provider auth.Provider, opts SessionOptions) *SessionMiddleware {
	if opts.CookieName == "" {
		opts.CookieName = DefaultSessionCookie
	}
	return &SessionMiddleware{
		provider: provider,
		cookie:   opts.CookieName,
		optional: opts.Optional,
	}
}

// Handler wraps an HTTP handler with session authentication
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if c, err := r.Cookie(m.cookie); err == nil {
			sessionID = c.Value
		}

		principal, err := m.provider.Principal(r.Context(), sessionID)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("Failed to resolve session")
			httputil.WriteServiceUnavailable(w, "session store unavailable")
			return
		}

		if principal == nil && !m.optional {
			httputil.WriteDenied(w, http.StatusUnauthorized, "unauthenticated", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}
