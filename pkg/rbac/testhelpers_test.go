package rbac

import (
	"context"
	"database/sql"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an in-memory SQLite database with the RBAC schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			role TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE role_permissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			permission_id INTEGER NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(role_id, permission_id)
		);
		CREATE TABLE user_roles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, role_id)
		);
	`
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return db
}

// createTestUser inserts a user with an optional legacy role.
func createTestUser(t *testing.T, db *sql.DB, email, legacyRole string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	var role interface{}
	if legacyRole != "" {
		role = legacyRole
	}
	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO users (id, email, full_name, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, email, email, role, now, now,
	)
	require.NoError(t, err)
	return id
}

// seedTestCatalog provisions the full catalog and built-in roles.
func seedTestCatalog(t *testing.T, store *Store) {
	t.Helper()
	_, err := NewAdmin(store, nil, nil, nil).Seed(context.Background())
	require.NoError(t, err)
}

// assignTestRole assigns a built-in role by name.
func assignTestRole(t *testing.T, store *Store, userID uuid.UUID, roleName string) {
	t.Helper()
	role, err := store.GetRoleByName(context.Background(), roleName)
	require.NoError(t, err)
	_, err = store.AssignRole(context.Background(), userID, role.ID)
	require.NoError(t, err)
}

func runtimeGosched() {
	runtime.Gosched()
}
