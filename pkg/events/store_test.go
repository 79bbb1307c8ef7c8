package events

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
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
		)
	`)
	require.NoError(t, err)
	return db
}

func intPtr(n int) *int { return &n }

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	date := time.Date(2026, 11, 14, 9, 0, 0, 0, time.UTC)
	closing := date.Add(-24 * time.Hour)
	e := &Event{
		Title:           "Frontend.mu November meetup",
		Status:          StatusPublished,
		EventDate:       date,
		AcceptingRsvp:   true,
		RsvpClosingDate: &closing,
		SeatsAvailable:  intPtr(40),
	}
	require.NoError(t, store.Create(ctx, e))
	assert.NotEqual(t, uuid.Nil, e.ID)

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, StatusPublished, got.Status)
	assert.True(t, got.EventDate.Equal(date))
	assert.True(t, got.AcceptingRsvp)
	require.NotNil(t, got.RsvpClosingDate)
	assert.True(t, got.RsvpClosingDate.Equal(closing))
	assert.Equal(t, 40, got.Seats())

	_, err = store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_NullableFields(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	e := &Event{Title: "Open house", Status: StatusDraft, EventDate: time.Now().Add(time.Hour)}
	require.NoError(t, store.Create(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RsvpClosingDate)
	assert.Nil(t, got.SeatsAvailable)
	assert.False(t, got.HasSeatLimit())
}

func TestStore_Update(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	e := &Event{Title: "Draft", Status: StatusDraft, EventDate: time.Now().Add(48 * time.Hour)}
	require.NoError(t, store.Create(ctx, e))

	e.Status = StatusPublished
	e.AcceptingRsvp = true
	e.SeatsAvailable = intPtr(2)
	require.NoError(t, store.Update(ctx, e))

	got, err := store.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublished())
	assert.Equal(t, 2, got.Seats())

	missing := &Event{ID: uuid.New(), Title: "x", Status: StatusDraft, EventDate: time.Now()}
	assert.ErrorIs(t, store.Update(ctx, missing), ErrNotFound)
}

func TestStore_Validation(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name  string
		event Event
	}{
		{"missing title", Event{Status: StatusPublished, EventDate: time.Now()}},
		{"unknown status", Event{Title: "x", Status: "archived", EventDate: time.Now()}},
		{"missing date", Event{Title: "x", Status: StatusPublished}},
		{"negative seats", Event{Title: "x", Status: StatusPublished, EventDate: time.Now(), SeatsAvailable: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.event
			assert.ErrorIs(t, store.Create(ctx, &e), ErrValidation)
		})
	}
}

func TestStore_ListUpcomingWithSeatLimit(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	create := func(title string, status Status, offset time.Duration, seats *int) *Event {
		e := &Event{Title: title, Status: status, EventDate: now.Add(offset), SeatsAvailable: seats}
		require.NoError(t, store.Create(ctx, e))
		return e
	}

	later := create("later", StatusPublished, 20*24*time.Hour, intPtr(10))
	sooner := create("sooner", StatusPublished, 2*24*time.Hour, intPtr(5))
	create("unlimited", StatusPublished, 3*24*time.Hour, nil)
	create("zero seats", StatusPublished, 3*24*time.Hour, intPtr(0))
	create("draft", StatusDraft, 3*24*time.Hour, intPtr(5))
	create("past", StatusPublished, -24*time.Hour, intPtr(5))
	create("too far", StatusPublished, 90*24*time.Hour, intPtr(5))

	got, err := store.ListUpcomingWithSeatLimit(ctx, now, now.Add(30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sooner.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}

func TestStore_GetTxLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM events WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "status", "event_date", "accepting_rsvp", "rsvp_closing_date", "seats_available", "created_at", "updated_at",
		}).AddRow(id.String(), "Meetup", "published", now, true, nil, int64(3), now, now))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	e, err := NewStore(db).GetTx(context.Background(), tx, id, true)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.Equal(t, 3, e.Seats())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvent_Predicates(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	e := &Event{EventDate: past, RsvpClosingDate: &past}
	assert.True(t, e.IsPast(now))
	assert.True(t, e.RsvpClosed(now))

	e = &Event{EventDate: future, RsvpClosingDate: &future}
	assert.False(t, e.IsPast(now))
	assert.False(t, e.RsvpClosed(now))

	e.RsvpClosingDate = nil
	assert.False(t, e.RsvpClosed(now))
}
