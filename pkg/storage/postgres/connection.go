// Package postgres manages the SQL connection pool shared by the rbac,
// events and rsvp stores, and the transaction helper they use.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/frontendmu/frontend.mu/pkg/observability"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver for development databases
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Driver      string
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// ConnectionManager owns the primary connection pool. Authorization reads
// must observe the writes that precede them, so there are no read replicas.
type ConnectionManager struct {
	db     *sql.DB
	config ConnectionConfig
}

// NewConnectionManager opens and pings the pool.
func NewConnectionManager(config ConnectionConfig) (*ConnectionManager, error) {
	if config.Driver == "" {
		config.Driver = "postgres"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	db, err := sql.Open(config.Driver, config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", config.Driver, err)
	}

	if config.Driver == "sqlite3" {
		// In-memory and file SQLite databases are per connection unless
		// shared; one connection keeps every query on the same database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxConns)
		db.SetMaxIdleConns(config.MinConns)
		db.SetConnMaxLifetime(config.MaxLifetime)
		db.SetConnMaxIdleTime(config.MaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &ConnectionManager{db: db, config: config}, nil
}

// NewFromDB wraps an existing pool, e.g. one opened by a test.
func NewFromDB(db *sql.DB, driver string) *ConnectionManager {
	return &ConnectionManager{db: db, config: ConnectionConfig{Driver: driver}}
}

// DB returns the pool.
func (cm *ConnectionManager) DB() *sql.DB {
	return cm.db
}

// Driver returns the database/sql driver name.
func (cm *ConnectionManager) Driver() string {
	return cm.config.Driver
}

// SupportsRowLocks reports whether SELECT ... FOR UPDATE is available.
func (cm *ConnectionManager) SupportsRowLocks() bool {
	return cm.config.Driver != "sqlite3"
}

// HealthCheck pings the pool.
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

// RecordStats copies pool statistics into the Prometheus gauges.
func (cm *ConnectionManager) RecordStats(metrics *observability.Metrics) {
	if metrics == nil {
		return
	}
	stats := cm.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}

// Close closes the pool.
func (cm *ConnectionManager) Close() error {
	return cm.db.Close()
}
