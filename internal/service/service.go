package service

import (
	"ticketboss/internal/database"
	"ticketboss/internal/messaging"
	"ticketboss/internal/metrics"
	"ticketboss/internal/repository"
)

type Services struct {
	Reservations *ReservationService
	Reset        *ResetService
}

func NewServices(db *database.DB, repos *repository.Repositories, eventID string, publisher messaging.Publisher, cache SummaryCache, m *metrics.Metrics) *Services {
	return &Services{
		Reservations: NewReservationService(db, repos, eventID, publisher, cache, m),
		Reset:        NewResetService(db, repos, eventID, publisher, cache, m),
	}
}
