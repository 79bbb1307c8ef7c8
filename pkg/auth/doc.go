// Package auth supplies the request principal to the authorization core.
//
// A Principal is resolved from a session id by a Provider. The Redis-backed
// SessionProvider reads the session record written at login and reloads the
// user from the users table:
//
//	provider := auth.NewSessionProvider(redisClient, auth.NewUserStore(db), "session:")
//	principal, err := provider.Principal(ctx, cookie.Value)
//	ctx = auth.WithPrincipal(ctx, principal) // nil principal means anonymous
//
// Abilities receive the *Principal directly and must accept nil.
package auth
