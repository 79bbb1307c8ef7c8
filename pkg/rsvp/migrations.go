package rsvp

import "github.com/frontendmu/frontend.mu/pkg/storage/postgres"

// Migrations returns the RSVP schema for PostgreSQL. It depends on the users
// and events tables.
func Migrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create rsvps table",
			SQL: `
				CREATE TABLE IF NOT EXISTS rsvps (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
					status VARCHAR(20) NOT NULL DEFAULT 'confirmed'
						CHECK (status IN ('confirmed', 'waitlist', 'cancelled')),
					notes TEXT,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, event_id)
				);

				CREATE INDEX IF NOT EXISTS idx_rsvps_event_status_created ON rsvps(event_id, status, created_at, id);
			`,
		},
	}
}
