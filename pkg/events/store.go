package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Store handles event persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new event store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, title, status, event_date, accepting_rsvp, rsvp_closing_date, seats_available, created_at, updated_at`

// Create inserts an event, assigning an id when none is set.
func (s *Store) Create(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.Title, string(e.Status), e.EventDate.UTC(), e.AcceptingRsvp,
		nullTime(e.RsvpClosingDate), nullInt(e.SeatsAvailable), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Get retrieves an event by id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return getEvent(ctx, s.db, id, false)
}

// GetTx retrieves an event inside tx. With lock set the row is locked
// (SELECT ... FOR UPDATE) until the transaction ends; drivers without row
// locks must pass false.
func (s *Store) GetTx(ctx context.Context, tx *sql.Tx, id uuid.UUID, lock bool) (*Event, error) {
	return getEvent(ctx, tx, id, lock)
}

func getEvent(ctx context.Context, q querier, id uuid.UUID, lock bool) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	e, err := scanEvent(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// Update saves the mutable fields of an event.
func (s *Store) Update(ctx context.Context, e *Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	e.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = $1, status = $2, event_date = $3, accepting_rsvp = $4,
			rsvp_closing_date = $5, seats_available = $6, updated_at = $7
		WHERE id = $8
	`, e.Title, string(e.Status), e.EventDate.UTC(), e.AcceptingRsvp,
		nullTime(e.RsvpClosingDate), nullInt(e.SeatsAvailable), e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}
	return nil
}

// ListUpcomingWithSeatLimit returns published, seat-limited events dated
// between from and until, soonest first.
func (s *Store) ListUpcomingWithSeatLimit(ctx context.Context, from, until time.Time) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = $1
			AND seats_available IS NOT NULL
			AND seats_available > 0
			AND event_date >= $2
			AND event_date <= $3
		ORDER BY event_date ASC, id ASC
	`, string(StatusPublished), from.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e       Event
		status  string
		closing sql.NullTime
		seats   sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Title, &status, &e.EventDate, &e.AcceptingRsvp,
		&closing, &seats, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	if closing.Valid {
		t := closing.Time
		e.RsvpClosingDate = &t
	}
	if seats.Valid {
		n := int(seats.Int64)
		e.SeatsAvailable = &n
	}
	return &e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
