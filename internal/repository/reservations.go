package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ticketboss/internal/models"

	"github.com/jmoiron/sqlx"
)

type ReservationRepository struct {
	q Querier
}

func NewReservationRepository(q Querier) *ReservationRepository {
	return &ReservationRepository{q: q}
}

func (r *ReservationRepository) WithTx(q Querier) *ReservationRepository {
	return &ReservationRepository{q: q}
}

func (r *ReservationRepository) Create(ctx context.Context, reservation *models.Reservation) error {
	query := `
		INSERT INTO reservations (id, event_id, partner_id, seats, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.q.ExecContext(ctx, r.q.Rebind(query),
		reservation.ID,
		reservation.EventID,
		reservation.PartnerID,
		reservation.Seats,
		string(reservation.Status),
		reservation.CreatedAt,
	)

	return err
}

// GetActive returns the reservation only while it is confirmed
func (r *ReservationRepository) GetActive(ctx context.Context, id string) (*models.Reservation, error) {
	reservation := &models.Reservation{}
	query := `
		SELECT id, event_id, partner_id, seats, status, created_at
		FROM reservations
		WHERE id = ? AND status = ?`

	err := sqlxGet(ctx, r.q, reservation, query, id, string(models.StatusConfirmed))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

// MarkCancelled flips a confirmed reservation to cancelled. It reports
// false when the reservation was not confirmed anymore.
func (r *ReservationRepository) MarkCancelled(ctx context.Context, id string) (bool, error) {
	query := `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), string(models.StatusCancelled), id, string(models.StatusConfirmed))
	if err != nil {
		return false, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	return matched(res)
}

// CancelAllActive flips every confirmed reservation of the event
func (r *ReservationRepository) CancelAllActive(ctx context.Context, eventID string) (int64, error) {
	query := `UPDATE reservations SET status = ? WHERE event_id = ? AND status = ?`

	res, err := r.q.ExecContext(ctx, r.q.Rebind(query), string(models.StatusCancelled), eventID, string(models.StatusConfirmed))
	if err != nil {
		return 0, fmt.Errorf("failed to cancel reservations: %w", err)
	}

	return res.RowsAffected()
}

func (r *ReservationRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reservations WHERE event_id = ? AND status = ?`

	err := sqlx.GetContext(ctx, r.q, &count, r.q.Rebind(query), eventID, string(models.StatusConfirmed))
	return count, err
}

// ListByEvent returns the event's ledger entries, optionally filtered by
// status, oldest first.
func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID string, status *models.ReservationStatus) ([]models.Reservation, error) {
	var reservations []models.Reservation
	args := []any{eventID}

	query := `
		SELECT id, event_id, partner_id, seats, status, created_at
		FROM reservations
		WHERE event_id = ?`

	if status != nil {
		query += " AND status = ?"
		args = append(args, string(*status))
	}

	query += " ORDER BY created_at, id"

	err := sqlx.SelectContext(ctx, r.q, &reservations, r.q.Rebind(query), args...)
	return reservations, err
}
