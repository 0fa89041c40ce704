package service

import (
	"context"
	"fmt"

	apperrors "ticketboss/internal/errors"
	"ticketboss/internal/models"
)

// CounterStore is the storage side of the event counter. The conditional
// write must evaluate both predicates atomically against the stored row.
type CounterStore interface {
	ReadCounter(ctx context.Context, eventID string) (*models.CounterState, error)
	CompareAndDecrement(ctx context.Context, eventID string, seats int, expectedVersion int64) (bool, error)
	Increment(ctx context.Context, eventID string, seats int) (bool, error)
}

// EventCounter implements the optimistic seat counter. It holds no lock:
// a reservation reads (availableSeats, version) and then issues a single
// compare-and-swap, and any interleaved writer makes that swap match zero
// rows. Callers are expected to run it inside a transaction together with
// the ledger write.
type EventCounter struct {
	store CounterStore
}

func NewEventCounter(store CounterStore) *EventCounter {
	return &EventCounter{store: store}
}

// ValidateSeats checks the per-reservation seat bounds
func ValidateSeats(seats int) error {
	if seats < models.MinSeatsPerReservation || seats > models.MaxSeatsPerReservation {
		return apperrors.Invalid(fmt.Sprintf("Invalid number of seats (%d-%d allowed)",
			models.MinSeatsPerReservation, models.MaxSeatsPerReservation))
	}
	return nil
}

// AttemptReserve takes seats from the pool and returns the new version.
// A denial is final; nothing here retries.
func (c *EventCounter) AttemptReserve(ctx context.Context, eventID string, seats int) (int64, error) {
	if err := ValidateSeats(seats); err != nil {
		return 0, err
	}

	state, err := c.store.ReadCounter(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to read event counter: %w", err)
	}
	if state == nil {
		return 0, apperrors.ErrEventMissing
	}

	// Fast fail. The conditional update below re-checks capacity anyway.
	if state.AvailableSeats < seats {
		return 0, apperrors.ErrInsufficientSeats
	}

	ok, err := c.store.CompareAndDecrement(ctx, eventID, seats, state.Version)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperrors.ErrVersionConflict
	}

	return state.Version + 1, nil
}

// Release returns seats to the pool. The version is bumped as well so
// observers see every change of availableSeats.
func (c *EventCounter) Release(ctx context.Context, eventID string, seats int) error {
	ok, err := c.store.Increment(ctx, eventID, seats)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrEventMissing
	}
	return nil
}
