package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/storage/postgres"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store handles RBAC data persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new RBAC store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertPermission creates a permission or refreshes its description.
func (s *Store) UpsertPermission(ctx context.Context, name, description string) (*Permission, error) {
	query := `
		INSERT INTO permissions (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
		RETURNING id, name, description, created_at, updated_at
	`

	now := time.Now().UTC()
	var p Permission
	err := s.db.QueryRowContext(ctx, query, name, description, now, now).Scan(
		&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert permission %s: %w", name, err)
	}
	return &p, nil
}

// GetPermissionByName retrieves a permission by name
func (s *Store) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM permissions WHERE name = $1`

	var p Permission
	err := s.db.QueryRowContext(ctx, query, name).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: permission %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &p, nil
}

// ListPermissions lists every persisted permission ordered by name
func (s *Store) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, created_at, updated_at FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// PermissionNames lists the names of every persisted permission.
func (s *Store) PermissionNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM permissions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permission names: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// UpsertRole creates a role or refreshes its description.
func (s *Store) UpsertRole(ctx context.Context, name, description string) (*Role, error) {
	query := `
		INSERT INTO roles (name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, updated_at = EXCLUDED.updated_at
		RETURNING id, name, description, created_at, updated_at
	`

	now := time.Now().UTC()
	var r Role
	err := s.db.QueryRowContext(ctx, query, name, description, now, now).Scan(
		&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert role %s: %w", name, err)
	}
	return &r, nil
}

// GetRole retrieves a role by ID together with its permissions
func (s *Store) GetRole(ctx context.Context, roleID int64) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, roleID)
	return s.scanRoleWithPermissions(ctx, row, fmt.Sprintf("%d", roleID))
}

// GetRoleByName retrieves a role by name together with its permissions
func (s *Store) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE name = $1`, name)
	return s.scanRoleWithPermissions(ctx, row, name)
}

func (s *Store) scanRoleWithPermissions(ctx context.Context, row *sql.Row, key string) (*Role, error) {
	var r Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: role %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	r.Permissions, err = s.RolePermissions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRoles lists all roles with their permissions
func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	roles, err := scanRoles(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range roles {
		roles[i].Permissions, err = s.RolePermissions(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// RolePermissions lists the permissions a role owns
func (s *Store) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	query := `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`

	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// SyncRolePermissions replaces the role's permission set with permissionIDs.
// Unknown permission ids are rejected with ErrValidation before any change.
func (s *Store) SyncRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM roles WHERE id = $1`, roleID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: role %d", ErrNotFound, roleID)
		}
		if err != nil {
			return fmt.Errorf("failed to get role: %w", err)
		}

		return syncPivot(ctx, tx, pivot{
			table:       "role_permissions",
			ownerColumn: "role_id",
			targetTable: "permissions",
			targetCol:   "permission_id",
		}, roleID, permissionIDs)
	})
}

// UserRoles lists the roles assigned to a user (without their permissions)
func (s *Store) UserRoles(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	query := `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()
	return scanRoles(rows)
}

// SyncUserRoles replaces the user's role assignments with roleIDs. Unknown
// role ids are rejected with ErrValidation before any change.
func (s *Store) SyncUserRoles(ctx context.Context, userID uuid.UUID, roleIDs []int64) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, userID); err != nil {
			return err
		}

		return syncPivot(ctx, tx, pivot{
			table:       "user_roles",
			ownerColumn: "user_id",
			targetTable: "roles",
			targetCol:   "role_id",
		}, userID, roleIDs)
	})
}

// AssignRole adds one role to a user. It reports false when the user already
// held the role.
func (s *Store) AssignRole(ctx context.Context, userID uuid.UUID, roleID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, created_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, role_id) DO NOTHING`,
		userID, roleID, time.Now().UTC(),
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return false, fmt.Errorf("%w: user %s or role %d", ErrNotFound, userID, roleID)
		}
		return false, fmt.Errorf("failed to assign role: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to assign role: %w", err)
	}
	return n > 0, nil
}

// RemoveRole removes one role from a user
func (s *Store) RemoveRole(ctx context.Context, userID uuid.UUID, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to remove role: %w", err)
	}
	return nil
}

// RoleNamesForUser returns the names of the roles assigned to a user.
func (s *Store) RoleNamesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT r.name
		FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles for user: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// PermissionNamesForUser returns the union of the permissions of every role
// assigned to a user.
func (s *Store) PermissionNamesForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT DISTINCT p.name
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions for user: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// UserIDsWithRole lists the users holding a role.
func (s *Store) UserIDsWithRole(ctx context.Context, roleID int64) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM user_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role holders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// pivot describes a many-to-many table synced by syncPivot.
type pivot struct {
	table       string
	ownerColumn string
	targetTable string
	targetCol   string
}

// syncPivot makes the owner's rows in p.table exactly targetIDs. Rows that
// survive keep their created_at.
func syncPivot(ctx context.Context, q querier, p pivot, owner interface{}, targetIDs []int64) error {
	ids := dedupeIDs(targetIDs)

	if len(ids) > 0 {
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		rows, err := q.QueryContext(ctx,
			fmt.Sprintf(`SELECT id FROM %s WHERE id IN (%s)`, p.targetTable, postgres.Placeholders(1, len(ids))),
			args...,
		)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", p.targetTable, err)
		}
		found := make(map[int64]bool, len(ids))
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan %s id: %w", p.targetTable, err)
			}
			found[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to check %s: %w", p.targetTable, err)
		}

		var missing []int64
		for _, id := range ids {
			if !found[id] {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: unknown %s ids %v", ErrValidation, p.targetTable, missing)
		}
	}

	deleteArgs := []interface{}{owner}
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, p.table, p.ownerColumn)
	if len(ids) > 0 {
		deleteQuery += fmt.Sprintf(` AND %s NOT IN (%s)`, p.targetCol, postgres.Placeholders(2, len(ids)))
		for _, id := range ids {
			deleteArgs = append(deleteArgs, id)
		}
	}
	if _, err := q.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("failed to prune %s: %w", p.table, err)
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO %s (%s, %s, created_at) VALUES ($1, $2, $3) ON CONFLICT (%s, %s) DO NOTHING`,
		p.table, p.ownerColumn, p.targetCol, p.ownerColumn, p.targetCol,
	)
	now := time.Now().UTC()
	for _, id := range ids {
		if _, err := q.ExecContext(ctx, insertQuery, owner, id, now); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", p.table, err)
		}
	}
	return nil
}

func userExists(ctx context.Context, q querier, userID uuid.UUID) error {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = $1`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func scanPermissions(rows *sql.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func scanRoles(rows *sql.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan name: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
