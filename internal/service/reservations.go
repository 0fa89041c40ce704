package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ticketboss/internal/cache"
	"ticketboss/internal/database"
	apperrors "ticketboss/internal/errors"
	"ticketboss/internal/logger"
	"ticketboss/internal/messaging"
	"ticketboss/internal/metrics"
	"ticketboss/internal/models"
	"ticketboss/internal/repository"

	"github.com/jmoiron/sqlx"
)

// SummaryCache keeps the monitoring view off the database between writes.
// SetSummary must refuse a summary read under an older generation than
// the current one.
type SummaryCache interface {
	GetSummary(ctx context.Context, eventID string) (*models.EventSummary, error)
	SummaryGeneration(ctx context.Context, eventID string) (int64, error)
	SetSummary(ctx context.Context, summary *models.EventSummary, generation int64) error
	InvalidateSummary(ctx context.Context, eventID string) error
}

type ReservationService struct {
	db        *database.DB
	repos     *repository.Repositories
	eventID   string
	publisher messaging.Publisher
	cache     SummaryCache
	metrics   *metrics.Metrics
}

func NewReservationService(db *database.DB, repos *repository.Repositories, eventID string, publisher messaging.Publisher, cache SummaryCache, m *metrics.Metrics) *ReservationService {
	if publisher == nil {
		publisher = messaging.NoopClient{}
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &ReservationService{
		db:        db,
		repos:     repos,
		eventID:   eventID,
		publisher: publisher,
		cache:     cache,
		metrics:   m,
	}
}

// Reserve validates the request, then takes the seats and records the
// reservation in one transaction. Conflicts are returned to the caller as
// is; there is no retry.
func (s *ReservationService) Reserve(ctx context.Context, req *models.ReserveSeatsRequest) (*models.ReserveSeatsResponse, error) {
	log := logger.WithContext(ctx)

	partnerID := req.PartnerID
	if strings.TrimSpace(partnerID) == "" {
		s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, apperrors.Invalid("Missing partnerId or seats")
	}
	if err := ValidateSeats(req.Seats); err != nil {
		s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	var (
		reservation *models.Reservation
		version     int64
	)
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repos := s.repos.WithTx(tx)
		counter := NewEventCounter(repos.Events)

		var err error
		version, err = counter.AttemptReserve(ctx, s.eventID, req.Seats)
		if err != nil {
			return err
		}

		reservation, err = NewLedger(repos.Reservations, counter).CreateReservation(ctx, s.eventID, partnerID, req.Seats)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientSeats):
			s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeInsufficientSeats).Inc()
			log.Info("Reservation rejected", "partner_id", partnerID, "seats", req.Seats, "reason", err.Error())
			return nil, err
		case errors.Is(err, apperrors.ErrConflict):
			s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeConflict).Inc()
			log.Info("Reservation rejected", "partner_id", partnerID, "seats", req.Seats, "reason", err.Error())
			return nil, err
		case errors.Is(err, apperrors.ErrInvalidRequest):
			s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return nil, err
		default:
			s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeError).Inc()
			log.Error("Failed to reserve seats", "partner_id", partnerID, "seats", req.Seats, "error", err)
			return nil, fmt.Errorf("failed to reserve seats: %w", err)
		}
	}

	s.metrics.ReservationAttempts.WithLabelValues(metrics.OutcomeAccepted).Inc()
	log.Info("Reservation confirmed",
		"reservation_id", reservation.ID,
		"partner_id", partnerID,
		"seats", reservation.Seats,
		"version", version)

	s.afterCommit(ctx, models.EventReservationConfirmed, models.ReservationConfirmedEvent{
		ReservationID: reservation.ID,
		EventID:       reservation.EventID,
		PartnerID:     reservation.PartnerID,
		Seats:         reservation.Seats,
		Version:       version,
		Timestamp:     reservation.CreatedAt,
	})

	return &models.ReserveSeatsResponse{
		ReservationID: reservation.ID,
		Seats:         reservation.Seats,
		Status:        reservation.Status,
	}, nil
}

// Cancel releases a confirmed reservation. Repeated cancels of the same
// id return ErrNotFound without crediting seats again.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) error {
	log := logger.WithContext(ctx)

	reservationID = strings.TrimSpace(reservationID)
	if reservationID == "" {
		s.metrics.Cancellations.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return apperrors.ErrNotFound
	}

	var reservation *models.Reservation
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repos := s.repos.WithTx(tx)
		ledger := NewLedger(repos.Reservations, NewEventCounter(repos.Events))

		var err error
		reservation, err = ledger.Cancel(ctx, reservationID)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.metrics.Cancellations.WithLabelValues(metrics.OutcomeNotFound).Inc()
			log.Info("Cancellation target not found", "reservation_id", reservationID)
			return err
		}
		s.metrics.Cancellations.WithLabelValues(metrics.OutcomeError).Inc()
		log.Error("Failed to cancel reservation", "reservation_id", reservationID, "error", err)
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	s.metrics.Cancellations.WithLabelValues(metrics.OutcomeCancelled).Inc()
	log.Info("Reservation cancelled",
		"reservation_id", reservation.ID,
		"partner_id", reservation.PartnerID,
		"seats", reservation.Seats)

	s.afterCommit(ctx, models.EventReservationCancelled, models.ReservationCancelledEvent{
		ReservationID: reservation.ID,
		EventID:       reservation.EventID,
		PartnerID:     reservation.PartnerID,
		Seats:         reservation.Seats,
		Timestamp:     time.Now().UTC(),
	})

	return nil
}

// Summary returns the monitoring view of the event. The counter and the
// reservation count are read separately and may briefly disagree.
func (s *ReservationService) Summary(ctx context.Context) (*models.EventSummary, error) {
	log := logger.WithContext(ctx)

	cacheable := false
	var generation int64
	if s.cache != nil {
		summary, err := s.cache.GetSummary(ctx, s.eventID)
		if err == nil {
			return summary, nil
		}
		log.Debug("Summary cache miss", "event_id", s.eventID, "error", err)

		generation, err = s.cache.SummaryGeneration(ctx, s.eventID)
		if err != nil {
			log.Warn("Failed to read summary generation", "event_id", s.eventID, "error", err)
		} else {
			cacheable = true
		}
	}

	event, err := s.repos.Events.GetByID(ctx, s.eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventMissing
	}

	count, err := s.repos.Reservations.CountActive(ctx, s.eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations: %w", err)
	}

	summary := &models.EventSummary{
		EventID:          event.ID,
		Name:             event.Name,
		TotalSeats:       event.TotalSeats,
		AvailableSeats:   event.AvailableSeats,
		ReservationCount: count,
		Version:          event.Version,
	}

	s.metrics.AvailableSeats.WithLabelValues(event.ID).Set(float64(event.AvailableSeats))
	s.metrics.EventVersion.WithLabelValues(event.ID).Set(float64(event.Version))

	if cacheable {
		err := s.cache.SetSummary(ctx, summary, generation)
		switch {
		case errors.Is(err, cache.ErrStale):
			log.Debug("Summary changed while reading, not cached", "event_id", s.eventID)
		case err != nil:
			log.Warn("Failed to cache summary", "event_id", s.eventID, "error", err)
		}
	}

	return summary, nil
}

// afterCommit runs the side effects of a committed mutation. Failures
// are logged only; the mutation itself already happened.
func (s *ReservationService) afterCommit(ctx context.Context, subject string, payload any) {
	log := logger.WithContext(ctx)

	if s.cache != nil {
		if err := s.cache.InvalidateSummary(ctx, s.eventID); err != nil {
			log.Warn("Failed to invalidate summary cache", "event_id", s.eventID, "error", err)
		}
	}

	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		log.Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}
