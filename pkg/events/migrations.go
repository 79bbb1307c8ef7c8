package events

import "github.com/frontendmu/frontend.mu/pkg/storage/postgres"

// Migrations returns the events schema for PostgreSQL.
func Migrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create events table",
			SQL: `
				CREATE TABLE IF NOT EXISTS events (
					id UUID PRIMARY KEY,
					title VARCHAR(255) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'published'
						CHECK (status IN ('published', 'draft', 'cancelled')),
					event_date TIMESTAMP NOT NULL,
					accepting_rsvp BOOLEAN NOT NULL DEFAULT FALSE,
					rsvp_closing_date TIMESTAMP,
					seats_available INTEGER CHECK (seats_available IS NULL OR seats_available >= 0),
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_events_event_date ON events(event_date);
				CREATE INDEX IF NOT EXISTS idx_events_status ON events(status);
			`,
		},
	}
}
