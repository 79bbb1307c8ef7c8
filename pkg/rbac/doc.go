// Package rbac implements role-based access control for the community site.
//
// # Model
//
// Permissions are named capabilities ("edit-event", "create-rsvp"). Roles
// own sets of permissions; roles are flat and never inherit from each other.
// Users are assigned any number of roles. A user's effective permissions are
// the union of the permissions of their roles. The catalog of permissions
// and the four built-in roles (superadmin, organizer, member, viewer) live in
// catalog.go and are provisioned with Admin.Seed.
//
// # Resolver
//
// Resolver answers HasRole, HasAnyRole, HasAllRoles, Can, Cannot, CanAny,
// CanAll and GetAllPermissions. The first question about a principal loads
// its role and permission names from the Source in one round trip and keeps
// them in a bounded side-table:
//
//	resolver := rbac.NewResolver(store, cfg.RBAC.CacheSize, rbac.WithMetrics(metrics))
//	ok, err := resolver.Can(ctx, principal, rbac.PermEditEvent)
//
// A nil principal is anonymous and holds nothing. Principals without role
// assignments get empty sets, never an error. Store failures are returned
// wrapped in ErrStoreUnavailable and nothing is cached for them.
//
// Cached grants never expire on their own. Code that changes assignments
// must go through Admin (or call Invalidate itself); HTTP handlers normally
// get a fresh resolver per request from ResolverMiddleware.
//
// # Administration
//
// Admin syncs a user's roles (refusing to let a superadmin remove their own
// superadmin role), syncs a role's permissions, assigns roles by name,
// migrates the legacy single-role users column and provisions the catalog.
package rbac
