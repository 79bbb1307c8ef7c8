package rbac

import (
	"context"
	"fmt"

	"github.com/frontendmu/frontend.mu/pkg/audit"
	"github.com/frontendmu/frontend.mu/pkg/auth"
)

// LegacyUserLister lists users together with the legacy single-role column.
type LegacyUserLister interface {
	ListUsersWithLegacyRole(ctx context.Context) ([]auth.User, error)
}

// LegacyMigrationResult summarises a legacy role migration.
type LegacyMigrationResult struct {
	Migrated int
	Skipped  int
	// Unmapped lists legacy values that had no explicit mapping and were
	// converted to member.
	Unmapped []string
}

// MigrateLegacyRoles assigns every user the built-in role its legacy role
// column maps to. Existing assignments are kept; users that already hold the
// mapped role are skipped. The built-in roles must have been seeded.
func (a *Admin) MigrateLegacyRoles(ctx context.Context, users LegacyUserLister) (*LegacyMigrationResult, error) {
	roles, err := a.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	roleIDs := make(map[string]int64, len(roles))
	for _, r := range roles {
		roleIDs[r.Name] = r.ID
	}

	list, err := users.ListUsersWithLegacyRole(ctx)
	if err != nil {
		return nil, err
	}

	result := &LegacyMigrationResult{}
	unmapped := make(map[string]bool)
	for _, u := range list {
		name := LegacyRoleFor(u.LegacyRole)
		if !IsLegacyRoleMapped(u.LegacyRole) && !unmapped[u.LegacyRole] {
			unmapped[u.LegacyRole] = true
			result.Unmapped = append(result.Unmapped, u.LegacyRole)
			a.logger.WithField("legacy_role", u.LegacyRole).Warn("No mapping for legacy role, assigning member")
		}

		roleID, ok := roleIDs[name]
		if !ok {
			return result, fmt.Errorf("%w: role %s (seed the catalog first)", ErrNotFound, name)
		}

		assigned, err := a.store.AssignRole(ctx, u.ID, roleID)
		if err != nil {
			return result, err
		}
		if !assigned {
			result.Skipped++
			continue
		}
		a.invalidator.Invalidate(u.ID)
		result.Migrated++

		id := u.ID
		if err := audit.FromContext(ctx).LogAdminAction(ctx, audit.EventTypeAdminLegacyMigration, nil, &id,
			fmt.Sprintf("Legacy role %q migrated to %s", u.LegacyRole, name),
		); err != nil {
			a.logger.WithError(err).Warn("Failed to write audit event")
		}
	}

	a.logger.Infof("Migrated %d users (%d already had roles)", result.Migrated, result.Skipped)
	return result, nil
}
