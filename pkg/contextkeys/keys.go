// Package contextkeys provides centralized context key definitions.
//
// All request-scoped values shared between packages are keyed here so that
// middleware and the code reading the values agree on one key per value.
//
//	ctx = contextkeys.WithPrincipal(ctx, principal)
//	principal := contextkeys.Principal(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains the authenticated principal.
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: ability checks, RSVP transitions, rbac.PermissionMiddleware
	// Type: any (the auth package stores *auth.Principal)
	PrincipalKey Key = "principal"

	// ResolverKey contains the request-scoped *rbac.Resolver.
	// Set by: rbac.ResolverMiddleware
	// Type: any
	ResolverKey Key = "rbac_resolver"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the principal id as a string
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// AuditLoggerKey contains audit.Logger interface
	// Set by: callers wiring an audit trail into the request
	// Used by: ability decisions (denials), role administration, RSVP transitions
	// Type: audit.Logger
	AuditLoggerKey Key = "audit_logger"
)

// WithPrincipal stores the principal value in the context.
// The value is typed as any to keep this package free of imports.
func WithPrincipal(ctx context.Context, principal any) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// Principal returns the raw principal value, or nil.
func Principal(ctx context.Context) any {
	return ctx.Value(PrincipalKey)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from context
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserID retrieves the user ID from context
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}
