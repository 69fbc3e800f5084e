package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createBookingsTable,
		createReservationLedgerTable,
		createInvitationsTable,
		createBookingIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// The events table is reference data owned by the catalog; the core only
// ever writes available_tickets, and only through the conditional
// reserve/release statements. The CHECK constraint is the last line of
// defense for the capacity invariant.
const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    organizer_id BIGINT NOT NULL,
    title VARCHAR(500) NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,
    date TIMESTAMP NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    total_tickets INTEGER NOT NULL,
    available_tickets INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('active', 'cancelled', 'completed')),
    CHECK (available_tickets >= 0 AND available_tickets <= total_tickets)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id),
    user_id BIGINT NOT NULL,
    number_of_tickets INTEGER NOT NULL CHECK (number_of_tickets >= 1),
    total_amount BIGINT NOT NULL DEFAULT 0,
    reference_code VARCHAR(16) UNIQUE NOT NULL,
    scan_token VARCHAR(64) UNIQUE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    checked_in BOOLEAN NOT NULL DEFAULT FALSE,
    checked_in_at TIMESTAMP,
    checked_in_by BIGINT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'confirmed', 'cancelled', 'attended')),
    CHECK (checked_in = (status = 'attended'))
);`

const createReservationLedgerTable = `
CREATE TABLE IF NOT EXISTS reservation_ledger (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id),
    booking_id INTEGER NOT NULL REFERENCES bookings(id),
    delta INTEGER NOT NULL,
    reason VARCHAR(20) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (reason IN ('reserve', 'release', 'adjust'))
);`

const createInvitationsTable = `
CREATE TABLE IF NOT EXISTS invitations (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id),
    email VARCHAR(255) NOT NULL,
    token VARCHAR(64) UNIQUE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    responded_at TIMESTAMP,

    CHECK (status IN ('pending', 'accepted', 'declined'))
);`

const createBookingIndexes = `
CREATE INDEX IF NOT EXISTS bookings_event_id_idx ON bookings (event_id);
CREATE INDEX IF NOT EXISTS bookings_user_id_idx ON bookings (user_id);
CREATE INDEX IF NOT EXISTS reservation_ledger_event_id_idx ON reservation_ledger (event_id);`
