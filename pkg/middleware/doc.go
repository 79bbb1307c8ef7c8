// Package middleware provides the HTTP middleware that establishes who is
// calling.
//
// # Middleware Components
//
// SessionMiddleware: Session cookie authentication
//
//	sessions := middleware.NewSessionMiddleware(provider, middleware.SessionOptions{Optional: true})
//	router.Use(sessions.Handler)
//	// Reads the session cookie, resolves it through auth.Provider and stores
//	// the principal with auth.WithPrincipal. Unknown sessions are anonymous.
//
// RequestIDMiddleware: Request correlation
//
//	router.Use(middleware.RequestIDMiddleware(logger))
//	// Accepts X-Request-ID or generates one, echoes it and attaches a logger
//
// # Related Packages
//
//   - pkg/auth: Principal and session provider
//   - pkg/rbac: PermissionMiddleware and ResolverMiddleware run after these
package middleware
