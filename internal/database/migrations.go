package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// EventSeed describes the event row created on first boot
type EventSeed struct {
	ID         string
	Name       string
	TotalSeats int
}

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...", "driver", db.driver)

	migrations, err := migrationsFor(db.driver)
	if err != nil {
		return err
	}

	for i, migration := range migrations {
		slog.Debug("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// SeedEvent inserts the event row when it does not exist yet. An existing
// row is never touched, so restarts keep the current counter state.
func (db *DB) SeedEvent(ctx context.Context, seed EventSeed) (bool, error) {
	if seed.TotalSeats <= 0 {
		return false, fmt.Errorf("total seats must be positive, got %d", seed.TotalSeats)
	}

	seeded := false
	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM events WHERE id = ?`), seed.ID); err != nil {
			return fmt.Errorf("failed to check event: %w", err)
		}
		if count > 0 {
			return nil
		}

		slog.Info("Seeding database with initial event", "event_id", seed.ID, "total_seats", seed.TotalSeats)
		_, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO events (id, name, total_seats, available_seats, version, created_at)
			VALUES (?, ?, ?, ?, 0, ?)`),
			seed.ID, seed.Name, seed.TotalSeats, seed.TotalSeats, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to seed event: %w", err)
		}
		seeded = true
		return nil
	})
	return seeded, err
}

func migrationsFor(driver string) ([]string, error) {
	switch driver {
	case DriverPostgres, DriverPGX:
		return []string{
			createEventsTablePostgres,
			createReservationsTablePostgres,
			createReservationsEventStatusIndex,
		}, nil
	case DriverMySQL:
		return []string{
			createEventsTableMySQL,
			createReservationsTableMySQL,
		}, nil
	case DriverSQLite:
		return []string{
			createEventsTableSQLite,
			createReservationsTableSQLite,
			createReservationsEventStatusIndex,
		}, nil
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}

const createEventsTablePostgres = `
CREATE TABLE IF NOT EXISTS events (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    total_seats INTEGER NOT NULL,
    available_seats INTEGER NOT NULL,
    version BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (total_seats > 0),
    CHECK (available_seats >= 0 AND available_seats <= total_seats),
    CHECK (version >= 0)
);`

const createReservationsTablePostgres = `
CREATE TABLE IF NOT EXISTS reservations (
    id VARCHAR(36) PRIMARY KEY,
    event_id VARCHAR(64) NOT NULL REFERENCES events(id),
    partner_id VARCHAR(255) NOT NULL,
    seats INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (seats BETWEEN 1 AND 10),
    CHECK (status IN ('confirmed', 'cancelled'))
);`

const createEventsTableMySQL = `
CREATE TABLE IF NOT EXISTS events (
    id VARCHAR(64) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    total_seats INT NOT NULL,
    available_seats INT NOT NULL,
    version BIGINT NOT NULL DEFAULT 0,
    created_at DATETIME(6) NOT NULL,

    CHECK (total_seats > 0),
    CHECK (available_seats >= 0 AND available_seats <= total_seats),
    CHECK (version >= 0)
) ENGINE=InnoDB;`

const createReservationsTableMySQL = `
CREATE TABLE IF NOT EXISTS reservations (
    id CHAR(36) PRIMARY KEY,
    event_id VARCHAR(64) NOT NULL,
    partner_id VARCHAR(255) NOT NULL,
    seats INT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    created_at DATETIME(6) NOT NULL,

    INDEX reservations_event_status_idx (event_id, status),
    FOREIGN KEY (event_id) REFERENCES events(id),
    CHECK (seats BETWEEN 1 AND 10),
    CHECK (status IN ('confirmed', 'cancelled'))
) ENGINE=InnoDB;`

const createEventsTableSQLite = `
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    total_seats INTEGER NOT NULL,
    available_seats INTEGER NOT NULL,
    version INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,

    CHECK (total_seats > 0),
    CHECK (available_seats >= 0 AND available_seats <= total_seats),
    CHECK (version >= 0)
);`

const createReservationsTableSQLite = `
CREATE TABLE IF NOT EXISTS reservations (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL REFERENCES events(id),
    partner_id TEXT NOT NULL,
    seats INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'confirmed',
    created_at DATETIME NOT NULL,

    CHECK (seats BETWEEN 1 AND 10),
    CHECK (status IN ('confirmed', 'cancelled'))
);`

const createReservationsEventStatusIndex = `
CREATE INDEX IF NOT EXISTS reservations_event_status_idx
ON reservations (event_id, status);`
