package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/audit"
	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// UserFinder looks users up by email.
type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
}

// Admin mutates role assignments and role permissions. Every mutation
// invalidates the affected cached grants before returning and is written to
// the audit trail in the context.
//
// Admin does not decide whether the actor may perform the mutation; callers
// check the assignRoles ability first.
type Admin struct {
	store       *Store
	invalidator Invalidator
	metrics     *observability.Metrics
	logger      *observability.Logger
}

// NewAdmin creates a role administration service. invalidator may be nil when
// no resolver outlives the call, as in command line tools.
func NewAdmin(store *Store, invalidator Invalidator, metrics *observability.Metrics, logger *observability.Logger) *Admin {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Admin{
		store:       store,
		invalidator: invalidator,
		metrics:     metrics,
		logger:      logger.WithComponent("rbac"),
	}
}

// Store returns the underlying store.
func (a *Admin) Store() *Store {
	return a.store
}

// SyncUserRoles replaces the roles of userID with roleIDs. It fails with
// ErrValidation, before any change, when roleIDs is empty, names an unknown
// role, or would remove the superadmin role from the actor themselves.
func (a *Admin) SyncUserRoles(ctx context.Context, actor *auth.Principal, userID uuid.UUID, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return fmt.Errorf("%w: at least one role is required", ErrValidation)
	}

	before, err := a.store.UserRoles(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if actor.Is(userID) {
		for _, r := range before {
			if r.Name == RoleSuperadmin && !containsID(roleIDs, r.ID) {
				return fmt.Errorf("%w: you cannot remove superadmin role from yourself", ErrValidation)
			}
		}
	}

	err = a.store.SyncUserRoles(ctx, userID, roleIDs)
	a.metrics.RoleSync("user_roles", err)
	if err != nil {
		return err
	}
	a.invalidator.Invalidate(userID)

	after, err := a.store.UserRoles(ctx, userID)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to reload roles for audit")
	}

	a.logger.WithFields(map[string]interface{}{
		"user_id": userID.String(),
		"roles":   roleNames(after),
	}).Info("User roles synced")

	if err := audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeAuthzRoleChange, actorID(actor),
		audit.ResourceTypeUser, userID.String(),
		&audit.ChangeDetails{
			Before: map[string]interface{}{"roles": roleNames(before)},
			After:  map[string]interface{}{"roles": roleNames(after)},
		},
		"User roles synced",
	); err != nil {
		a.logger.WithError(err).Warn("Failed to write audit event")
	}
	return nil
}

// SyncRolePermissions replaces the permissions of roleID with
// permissionIDs. Every cached principal is invalidated since any of them may
// hold the role.
func (a *Admin) SyncRolePermissions(ctx context.Context, actor *auth.Principal, roleID int64, permissionIDs []int64) error {
	before, err := a.store.RolePermissions(ctx, roleID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	err = a.store.SyncRolePermissions(ctx, roleID, permissionIDs)
	a.metrics.RoleSync("role_permissions", err)
	if err != nil {
		return err
	}
	a.invalidator.InvalidateAll()

	after, err := a.store.RolePermissions(ctx, roleID)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to reload role permissions for audit")
	}

	if err := audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeAuthzPermissionGrant, actorID(actor),
		audit.ResourceTypeRole, fmt.Sprintf("%d", roleID),
		&audit.ChangeDetails{
			Before: map[string]interface{}{"permissions": permissionNames(before)},
			After:  map[string]interface{}{"permissions": permissionNames(after)},
		},
		"Role permissions synced",
	); err != nil {
		a.logger.WithError(err).Warn("Failed to write audit event")
	}
	return nil
}

// AssignRoleByName adds the named role to a user, keeping the user's other
// roles. It reports false when the user already held the role.
func (a *Admin) AssignRoleByName(ctx context.Context, actor *auth.Principal, userID uuid.UUID, roleName string) (bool, error) {
	role, err := a.store.GetRoleByName(ctx, roleName)
	if err != nil {
		return false, err
	}

	assigned, err := a.store.AssignRole(ctx, userID, role.ID)
	a.metrics.RoleSync("assign", err)
	if err != nil {
		return false, err
	}
	a.invalidator.Invalidate(userID)

	if assigned {
		if err := audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeAuthzRoleChange, actorID(actor),
			audit.ResourceTypeUser, userID.String(),
			&audit.ChangeDetails{After: map[string]interface{}{"added_role": roleName}},
			"Role assigned",
		); err != nil {
			a.logger.WithError(err).Warn("Failed to write audit event")
		}
	}
	return assigned, nil
}

// MakeSuperadmin assigns the superadmin role to the user with the given
// email. It reports false when the user was already a superadmin.
func (a *Admin) MakeSuperadmin(ctx context.Context, users UserFinder, email string) (*auth.User, bool, error) {
	user, err := users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	assigned, err := a.AssignRoleByName(ctx, nil, user.ID, RoleSuperadmin)
	if err != nil {
		return nil, false, err
	}
	return user, assigned, nil
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(uuid.UUID) {}
func (noopInvalidator) InvalidateAll()       {}

func actorID(p *auth.Principal) *uuid.UUID {
	if p == nil {
		return nil
	}
	id := p.ID
	return &id
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func roleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}

func permissionNames(perms []Permission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names
}
