package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketboss/internal/models"

	"github.com/jmoiron/sqlx"
)

type EventRepository struct {
	q Querier
}

func NewEventRepository(q Querier) *EventRepository {
	return &EventRepository{q: q}
}

func (r *EventRepository) WithTx(q Querier) *EventRepository {
	return &EventRepository{q: q}
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, total_seats, available_seats, version
		FROM events
		WHERE id = ?`

	err := sqlxGet(ctx, r.q, event, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return event, nil
}

// ReadCounter returns the current (availableSeats, version) pair, or nil
// when the event does not exist.
func (r *EventRepository) ReadCounter(ctx context.Context, id string) (*models.CounterState, error) {
	state := &models.CounterState{}
	query := `SELECT available_seats, version FROM events WHERE id = ?`

	err := sqlxGet(ctx, r.q, state, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return state, nil
}

// ReadBalance reads the counter and the confirmed seat total in a single
// statement, so a concurrent commit cannot land between the two.
func (r *EventRepository) ReadBalance(ctx context.Context, id string) (*models.LedgerBalance, error) {
	balance := &models.LedgerBalance{}
	query := `
		SELECT e.available_seats, e.total_seats, e.version,
		       (SELECT COALESCE(SUM(r.seats), 0)
		          FROM reservations r
		         WHERE r.event_id = e.id AND r.status = ?) AS reserved_seats
		FROM events e
		WHERE e.id = ?`

	err := sqlxGet(ctx, r.q, balance, query, string(models.StatusConfirmed), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// CompareAndDecrement takes seats from the pool only if the row still
// carries expectedVersion and still has enough seats. Both predicates are
// evaluated by the database against the current row. It reports whether
// a row matched.
func (r *EventRepository) CompareAndDecrement(ctx context.Context, id string, seats int, expectedVersion int64) (bool, error) {
	query := `
		UPDATE events
		SET available_seats = available_seats - ?,
		    version = version + 1
		WHERE id = ?
		  AND version = ?
		  AND available_seats >= ?`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), seats, id, expectedVersion, seats)
	if err != nil {
		return false, fmt.Errorf("conditional update failed: %w", err)
	}

	return matched(res)
}

// Increment returns seats to the pool and bumps the version. It reports
// whether the event row exists.
func (r *EventRepository) Increment(ctx context.Context, id string, seats int) (bool, error) {
	query := `
		UPDATE events
		SET available_seats = available_seats + ?,
		    version = version + 1
		WHERE id = ?`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), seats, id)
	if err != nil {
		return false, fmt.Errorf("increment failed: %w", err)
	}

	return matched(res)
}

// RestoreCapacity sets available seats back to total seats with a single
// version bump.
func (r *EventRepository) RestoreCapacity(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE events
		SET available_seats = total_seats,
		    version = version + 1
		WHERE id = ?`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), id)
	if err != nil {
		return false, fmt.Errorf("restore capacity failed: %w", err)
	}

	return matched(res)
}

func sqlxGet(ctx context.Context, q Querier, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
}

func matched(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
