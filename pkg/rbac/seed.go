package rbac

import (
	"context"
	"fmt"

	"github.com/frontendmu/frontend.mu/pkg/audit"
)

// SeedResult summarises a catalog provisioning run.
type SeedResult struct {
	Permissions int
	Roles       int
}

// Seed provisions the permission catalog and the built-in roles, then syncs
// each built-in role to its permission set. Running it again converges on
// the same state.
func (a *Admin) Seed(ctx context.Context) (*SeedResult, error) {
	ids := make(map[string]int64, len(catalog))
	for _, def := range Catalog() {
		p, err := a.store.UpsertPermission(ctx, def.Name, def.Description)
		if err != nil {
			return nil, err
		}
		ids[p.Name] = p.ID
	}
	a.logger.Infof("Provisioned %d permissions", len(ids))

	roles := BuiltInRoles()
	for _, def := range roles {
		role, err := a.store.UpsertRole(ctx, def.Name, def.Description)
		if err != nil {
			return nil, err
		}

		permissionIDs := make([]int64, 0, len(def.Permissions))
		for _, name := range def.Permissions {
			id, ok := ids[name]
			if !ok {
				return nil, fmt.Errorf("%w: role %s references unknown permission %s", ErrValidation, def.Name, name)
			}
			permissionIDs = append(permissionIDs, id)
		}

		err = a.store.SyncRolePermissions(ctx, role.ID, permissionIDs)
		a.metrics.RoleSync("role_permissions", err)
		if err != nil {
			return nil, err
		}
		a.logger.WithField("role", def.Name).Infof("Synced %d permissions", len(permissionIDs))
	}
	a.invalidator.InvalidateAll()

	result := &SeedResult{Permissions: len(ids), Roles: len(roles)}
	if err := audit.FromContext(ctx).LogAdminAction(ctx, audit.EventTypeAdminCatalogSeed, nil, nil,
		fmt.Sprintf("Provisioned %d permissions and %d roles", result.Permissions, result.Roles),
	); err != nil {
		a.logger.WithError(err).Warn("Failed to write audit event")
	}
	return result, nil
}
