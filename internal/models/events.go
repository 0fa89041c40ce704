package models

import "time"

// Messaging subjects
const (
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
)

// ReservationConfirmedEvent is published after a reservation commits
type ReservationConfirmedEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	PartnerID     string    `json:"partner_id"`
	Seats         int       `json:"seats"`
	Version       int64     `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

// ReservationCancelledEvent is published after a cancellation commits
type ReservationCancelledEvent struct {
	ReservationID string    `json:"reservation_id"`
	EventID       string    `json:"event_id"`
	PartnerID     string    `json:"partner_id"`
	Seats         int       `json:"seats"`
	Timestamp     time.Time `json:"timestamp"`
}
