package repository

import (
	"ticketboss/internal/database"

	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so the same
// repository code runs standalone or inside a unit of work.
type Querier interface {
	sqlx.ExtContext
}

type Repositories struct {
	Events       *EventRepository
	Reservations *ReservationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:       NewEventRepository(db.DB),
		Reservations: NewReservationRepository(db.DB),
	}
}

// WithTx returns repositories bound to tx
func (r *Repositories) WithTx(tx *sqlx.Tx) *Repositories {
	return &Repositories{
		Events:       r.Events.WithTx(tx),
		Reservations: r.Reservations.WithTx(tx),
	}
}
