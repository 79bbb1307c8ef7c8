package rsvp

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/frontendmu/frontend.mu/pkg/ability"
	"github.com/frontendmu/frontend.mu/pkg/auth"
	"github.com/frontendmu/frontend.mu/pkg/events"
	"github.com/frontendmu/frontend.mu/pkg/rbac"
)

// setupTestDB opens an in-memory SQLite database with users, events and
// rsvps.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			role TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'published',
			event_date TIMESTAMP NOT NULL,
			accepting_rsvp BOOLEAN NOT NULL DEFAULT 0,
			rsvp_closing_date TIMESTAMP,
			seats_available INTEGER,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE TABLE rsvps (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'confirmed',
			notes TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(user_id, event_id)
		);
	`)
	require.NoError(t, err)
	return db
}

var baseTime = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

// tickingClock advances one second per reading so creation order is
// observable in created_at.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: baseTime}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

var memberChecker = grantChecker{permissions: rbac.NewSet(rbac.PermViewEvents, rbac.PermCreateRSVP, rbac.PermCancelRSVP)}

func fixedNow() time.Time { return baseTime }

// grantChecker grants a fixed permission set to every principal.
type grantChecker struct {
	permissions rbac.Set
}

func (g grantChecker) Can(ctx context.Context, p *auth.Principal, permission string) (bool, error) {
	return g.permissions.Has(permission), nil
}

// recordingNotifier captures promotions.
type recordingNotifier struct {
	mu         sync.Mutex
	promotions []Promotion
}

func (n *recordingNotifier) NotifyPromotion(ctx context.Context, p Promotion) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.promotions = append(n.promotions, p)
	return nil
}

type fixture struct {
	db       *sql.DB
	store    *Store
	service  *Service
	notifier *recordingNotifier
	clock    *tickingClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	store := NewStore(db, false)
	clock := newTickingClock()
	notifier := &recordingNotifier{}

	gate := ability.NewGate(memberChecker, nil, ability.WithClock(fixedNow))

	return &fixture{
		db:       db,
		store:    store,
		service:  NewService(store, gate, WithNotifier(notifier), WithClock(clock.Now)),
		notifier: notifier,
		clock:    clock,
	}
}

func (f *fixture) user(t *testing.T) *auth.Principal {
	t.Helper()
	id := uuid.New()
	email := id.String() + "@example.com"
	_, err := f.db.Exec(
		`INSERT INTO users (id, email, full_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, email, "Test User", baseTime, baseTime,
	)
	require.NoError(t, err)
	return &auth.Principal{ID: id, Email: email}
}

func (f *fixture) event(t *testing.T, seats *int) *events.Event {
	t.Helper()
	e := &events.Event{
		Title:          "Frontend.mu meetup",
		Status:         events.StatusPublished,
		EventDate:      baseTime.Add(14 * 24 * time.Hour),
		AcceptingRsvp:  true,
		SeatsAvailable: seats,
	}
	require.NoError(t, f.store.Events().Create(context.Background(), e))
	return e
}

func seats(n int) *int { return &n }
