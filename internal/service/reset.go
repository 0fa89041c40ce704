package service

import (
	"context"
	"fmt"
	"time"

	"ticketboss/internal/database"
	apperrors "ticketboss/internal/errors"
	"ticketboss/internal/logger"
	"ticketboss/internal/messaging"
	"ticketboss/internal/metrics"
	"ticketboss/internal/models"
	"ticketboss/internal/repository"

	"github.com/jmoiron/sqlx"
)

type ResetService struct {
	db        *database.DB
	repos     *repository.Repositories
	eventID   string
	publisher messaging.Publisher
	cache     SummaryCache
	metrics   *metrics.Metrics
}

func NewResetService(db *database.DB, repos *repository.Repositories, eventID string, publisher messaging.Publisher, cache SummaryCache, m *metrics.Metrics) *ResetService {
	if publisher == nil {
		publisher = messaging.NoopClient{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &ResetService{
		db:        db,
		repos:     repos,
		eventID:   eventID,
		publisher: publisher,
		cache:     cache,
		metrics:   m,
	}
}

// ResetEvent cancels every confirmed reservation and gives the event its
// full capacity back, in one transaction. Ledger rows are kept. Every
// cancelled reservation is published like a regular cancellation.
func (s *ResetService) ResetEvent(ctx context.Context) (int64, error) {
	log := logger.WithContext(ctx)
	log.Info("Starting event reset", "event_id", s.eventID)

	var (
		cancelled int64
		active    []models.Reservation
	)
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repos := s.repos.WithTx(tx)

		// The counter row is updated first so concurrent reserves queue
		// behind this transaction.
		ok, err := repos.Events.RestoreCapacity(ctx, s.eventID)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrEventMissing
		}

		confirmed := models.StatusConfirmed
		active, err = repos.Reservations.ListByEvent(ctx, s.eventID, &confirmed)
		if err != nil {
			return fmt.Errorf("failed to list reservations: %w", err)
		}

		cancelled, err = repos.Reservations.CancelAllActive(ctx, s.eventID)
		return err
	})
	if err != nil {
		log.Error("Failed to reset event", "event_id", s.eventID, "error", err)
		return 0, fmt.Errorf("failed to reset event: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSummary(ctx, s.eventID); err != nil {
			log.Warn("Failed to invalidate summary cache", "event_id", s.eventID, "error", err)
		}
	}

	s.metrics.Cancellations.WithLabelValues(metrics.OutcomeReset).Add(float64(cancelled))

	now := time.Now().UTC()
	for _, r := range active {
		err := s.publisher.Publish(ctx, models.EventReservationCancelled, models.ReservationCancelledEvent{
			ReservationID: r.ID,
			EventID:       r.EventID,
			PartnerID:     r.PartnerID,
			Seats:         r.Seats,
			Timestamp:     now,
		})
		if err != nil {
			log.Error("Failed to publish event",
				"error", err,
				"event_type", models.EventReservationCancelled,
				"reservation_id", r.ID)
		}
	}

	log.Info("Event reset completed", "event_id", s.eventID, "cancelled_reservations", cancelled)
	return cancelled, nil
}
