package models

import (
	"time"
)

// ReservationStatus is the lifecycle tag of a ledger entry.
// The only transition is Confirmed -> Cancelled.
type ReservationStatus string

const (
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

func (s ReservationStatus) Active() bool {
	return s == StatusConfirmed
}

// Event represents the seat counter aggregate for one event
type Event struct {
	ID             string `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	TotalSeats     int    `json:"total_seats" db:"total_seats"`
	AvailableSeats int    `json:"available_seats" db:"available_seats"`
	Version        int64  `json:"version" db:"version"`
}

// Reservation represents a ledger entry for a block of seats
type Reservation struct {
	ID        string            `json:"id" db:"id"`
	EventID   string            `json:"event_id" db:"event_id"`
	PartnerID string            `json:"partner_id" db:"partner_id"`
	Seats     int               `json:"seats" db:"seats"`
	Status    ReservationStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// CounterState is the (availableSeats, version) pair read before a
// conditional update.
type CounterState struct {
	AvailableSeats int   `db:"available_seats"`
	Version        int64 `db:"version"`
}

// LedgerBalance is the counter row together with the seats held by
// confirmed reservations, read as one snapshot.
type LedgerBalance struct {
	AvailableSeats int   `db:"available_seats"`
	TotalSeats     int   `db:"total_seats"`
	Version        int64 `db:"version"`
	ReservedSeats  int   `db:"reserved_seats"`
}

// Drift is how far the counter is from what the ledger implies
func (b LedgerBalance) Drift() int {
	return b.AvailableSeats - (b.TotalSeats - b.ReservedSeats)
}
