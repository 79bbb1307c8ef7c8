package rsvp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontendmu/frontend.mu/pkg/events"
	"github.com/frontendmu/frontend.mu/pkg/storage/postgres"
)

// errDuplicate marks an insert that lost the race for (user_id, event_id).
var errDuplicate = errors.New("duplicate rsvp")

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Store handles RSVP persistence
type Store struct {
	db       *sql.DB
	events   *events.Store
	rowLocks bool
}

// NewStore creates an RSVP store. rowLocks enables SELECT ... FOR UPDATE on
// the event row inside transactions; pass false for SQLite, which serialises
// writers itself.
func NewStore(db *sql.DB, rowLocks bool) *Store {
	return &Store{db: db, events: events.NewStore(db), rowLocks: rowLocks}
}

// Events returns the event store sharing this pool.
func (s *Store) Events() *events.Store {
	return s.events
}

// Tx is a transaction over RSVP rows of one event.
type Tx struct {
	tx    *sql.Tx
	store *Store
}

// WithTx runs fn in a transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Tx{tx: tx, store: s})
	})
}

const rsvpColumns = `id, user_id, event_id, status, COALESCE(notes, ''), created_at, updated_at`

// Get retrieves an RSVP by id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*RSVP, error) {
	return getRSVP(ctx, s.db, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1`, id)
}

// FindActive returns the user's non-cancelled RSVP for the event, or nil.
func (s *Store) FindActive(ctx context.Context, userID, eventID uuid.UUID) (*RSVP, error) {
	r, err := findForUserEvent(ctx, s.db, userID, eventID)
	if err != nil || r == nil || !r.Active() {
		return nil, err
	}
	return r, nil
}

// FindForUserEvent returns the user's RSVP for the event in any status, or
// nil.
func (s *Store) FindForUserEvent(ctx context.Context, userID, eventID uuid.UUID) (*RSVP, error) {
	return findForUserEvent(ctx, s.db, userID, eventID)
}

// ListForEvent returns every RSVP of an event in admission order.
func (s *Store) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]RSVP, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+rsvpColumns+`
		FROM rsvps
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	defer rows.Close()

	var out []RSVP
	for rows.Next() {
		r, err := scanRSVP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// LockEvent reads the event, locking its row until the transaction ends
// when the store uses row locks.
func (t *Tx) LockEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	return t.store.events.GetTx(ctx, t.tx, eventID, t.store.rowLocks)
}

// Get retrieves an RSVP by id inside the transaction.
func (t *Tx) Get(ctx context.Context, id uuid.UUID) (*RSVP, error) {
	return getRSVP(ctx, t.tx, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1`, id)
}

// FindForUserEvent returns the user's RSVP for the event in any status, or
// nil.
func (t *Tx) FindForUserEvent(ctx context.Context, userID, eventID uuid.UUID) (*RSVP, error) {
	return findForUserEvent(ctx, t.tx, userID, eventID)
}

// CountConfirmed counts the confirmed RSVPs of an event.
func (t *Tx) CountConfirmed(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rsvps WHERE event_id = $1 AND status = $2`,
		eventID, string(StatusConfirmed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed rsvps: %w", err)
	}
	return n, nil
}

// OldestWaitlisted returns up to limit waitlisted RSVPs of an event, oldest
// first. Ties on created_at are broken by id.
func (t *Tx) OldestWaitlisted(ctx context.Context, eventID uuid.UUID, limit int) ([]*RSVP, error) {
	query := `
		SELECT ` + rsvpColumns + `
		FROM rsvps
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
	`
	args := []interface{}{eventID, string(StatusWaitlist)}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list waitlist: %w", err)
	}
	defer rows.Close()

	var out []*RSVP
	for rows.Next() {
		r, err := scanRSVP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Insert creates an RSVP with a time-ordered id. It returns errDuplicate when
// the user already has a row for the event.
func (t *Tx) Insert(ctx context.Context, r *RSVP, now time.Time) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate rsvp id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO rsvps (id, user_id, event_id, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.UserID, r.EventID, string(r.Status), nullString(r.Notes), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return errDuplicate
		}
		return fmt.Errorf("failed to insert rsvp: %w", err)
	}
	return nil
}

// SetStatus moves r to status and saves its notes.
func (t *Tx) SetStatus(ctx context.Context, r *RSVP, status Status, now time.Time) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE rsvps SET status = $1, notes = $2, updated_at = $3 WHERE id = $4`,
		string(status), nullString(r.Notes), now, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update rsvp: %w", err)
	}
	if n == 0 {
		return notFound("rsvp %s", r.ID)
	}
	r.Status = status
	r.UpdatedAt = now
	return nil
}

func findForUserEvent(ctx context.Context, q querier, userID, eventID uuid.UUID) (*RSVP, error) {
	r, err := getRSVP(ctx, q,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	)
	var rerr *Error
	if errors.As(err, &rerr) && rerr.Kind == ErrNotFound {
		return nil, nil
	}
	return r, err
}

func getRSVP(ctx context.Context, q querier, query string, args ...interface{}) (*RSVP, error) {
	r, err := scanRSVP(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, notFound("rsvp %v", args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return r, nil
}

func scanRSVP(row rowScanner) (*RSVP, error) {
	var (
		r      RSVP
		status string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.EventID, &status, &r.Notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
