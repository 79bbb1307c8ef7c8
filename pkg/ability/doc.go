// Package ability decides whether a principal may perform a named action on
// a resource.
//
// Each resource type has an Authorizer that combines a permission check
// against the RBAC resolver with predicates on the resource itself
// (publication status, RSVP window, ownership). Authorizers return a
// Decision carrying the reason for a denial; an error is returned only when
// the permission store could not be read.
//
// The ability to permission mapping is a fixed table (Mappings). CheckCatalog
// and VerifyStore compare it against the permission catalog so that an
// ability can never reference a permission that does not exist.
//
//	gate := ability.NewGate(resolver, flags, ability.WithMetrics(metrics))
//	decision, err := gate.Authorize(ctx, principal, ability.ResourceRSVP, ability.Create, event)
//	if err != nil {
//		// store unavailable
//	}
//	if !decision.Allowed {
//		// decision.Reason explains why
//	}
package ability
