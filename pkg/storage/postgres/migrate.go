package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/frontendmu/frontend.mu/pkg/observability"
)

// Migration is one versioned schema change of a component.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrate applies the pending migrations of one component ("rbac", "rsvp",
// ...) in version order. Applied versions are tracked per component in
// schema_migrations; each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, component string, migrations []Migration, logger *observability.Logger) error {
	if logger == nil {
		logger = observability.NopLogger()
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			component VARCHAR(64) NOT NULL,
			version INTEGER NOT NULL,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (component, version)
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations WHERE component = $1`, component)
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		log := logger.WithFields(map[string]interface{}{"component": component, "version": m.Version})
		log.Infof("Running migration: %s", m.Description)

		err := WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %s/%d: %w", component, m.Version, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (component, version, description) VALUES ($1, $2, $3)`,
				component, m.Version, m.Description,
			); err != nil {
				return fmt.Errorf("failed to record migration %s/%d: %w", component, m.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
