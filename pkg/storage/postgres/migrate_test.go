package postgres

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	migrations := []Migration{
		{Version: 2, Description: "add notes", SQL: `ALTER TABLE widgets ADD COLUMN notes TEXT`},
		{Version: 1, Description: "create widgets", SQL: `CREATE TABLE widgets (id INTEGER PRIMARY KEY)`},
	}

	require.NoError(t, Migrate(ctx, db, "widgets", migrations, nil))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE component = 'widgets'`).Scan(&count))
	assert.Equal(t, 2, count)

	// Re-running is a no-op; version 2 would fail if applied twice.
	require.NoError(t, Migrate(ctx, db, "widgets", migrations, nil))

	_, err := db.Exec(`INSERT INTO widgets (id, notes) VALUES (1, 'ok')`)
	assert.NoError(t, err)
}

func TestMigrate_FailureIsNotRecorded(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	err := Migrate(ctx, db, "broken", []Migration{
		{Version: 1, Description: "bad sql", SQL: `CREATE TABLE`},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute migration broken/1")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Zero(t, count)
}
