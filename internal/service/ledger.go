package service

import (
	"context"
	"fmt"
	"time"

	apperrors "ticketboss/internal/errors"
	"ticketboss/internal/models"

	"github.com/google/uuid"
)

type LedgerStore interface {
	Create(ctx context.Context, reservation *models.Reservation) error
	GetActive(ctx context.Context, id string) (*models.Reservation, error)
	MarkCancelled(ctx context.Context, id string) (bool, error)
}

// Ledger is the append-only record of reservations. Entries are created
// confirmed and flipped to cancelled at most once; they are never deleted.
type Ledger struct {
	store   LedgerStore
	counter *EventCounter
	now     func() time.Time
}

func NewLedger(store LedgerStore, counter *EventCounter) *Ledger {
	return &Ledger{
		store:   store,
		counter: counter,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation records a confirmed reservation. It must run in the
// same transaction as the successful AttemptReserve it belongs to.
func (l *Ledger) CreateReservation(ctx context.Context, eventID, partnerID string, seats int) (*models.Reservation, error) {
	reservation := &models.Reservation{
		ID:        uuid.NewString(),
		EventID:   eventID,
		PartnerID: partnerID,
		Seats:     seats,
		Status:    models.StatusConfirmed,
		CreatedAt: l.now(),
	}

	if err := l.store.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	return reservation, nil
}

// Cancel flips a confirmed reservation to cancelled and credits its seats
// back. Unknown and already cancelled ids both yield ErrNotFound.
func (l *Ledger) Cancel(ctx context.Context, reservationID string) (*models.Reservation, error) {
	reservation, err := l.store.GetActive(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if reservation == nil || !reservation.Status.Active() {
		return nil, apperrors.ErrNotFound
	}

	// The status flip is conditional too: of two concurrent cancels only
	// one can match, so seats are credited once.
	ok, err := l.store.MarkCancelled(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	if err := l.counter.Release(ctx, reservation.EventID, reservation.Seats); err != nil {
		return nil, err
	}

	reservation.Status = models.StatusCancelled
	return reservation, nil
}
