package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"ticketboss/internal/logger"
	"ticketboss/internal/models"
)

// AuditIndexer projects reservation lifecycle events into the audit index
type AuditIndexer interface {
	IndexConfirmed(ctx context.Context, event models.ReservationConfirmedEvent) error
	MarkCancelled(ctx context.Context, event models.ReservationCancelledEvent) error
}

type Handlers struct {
	indexer AuditIndexer
}

func NewHandlers(indexer AuditIndexer) *Handlers {
	return &Handlers{indexer: indexer}
}

// HandleReservationConfirmed indexes a confirmed reservation. A payload
// that cannot be decoded is logged and acknowledged; redelivering it
// would not help.
func (h *Handlers) HandleReservationConfirmed(ctx context.Context, data []byte) error {
	var event models.ReservationConfirmedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation confirmed event", "error", err)
		return nil
	}

	log := logger.WithFields("reservation_id", event.ReservationID, "event_type", models.EventReservationConfirmed)
	log.Info("Processing reservation event",
		"partner_id", event.PartnerID,
		"seats", event.Seats,
		"version", event.Version)

	if h.indexer == nil {
		return nil
	}
	if err := h.indexer.IndexConfirmed(ctx, event); err != nil {
		log.Error("Failed to index reservation", "error", err)
		return err
	}

	return nil
}

func (h *Handlers) HandleReservationCancelled(ctx context.Context, data []byte) error {
	var event models.ReservationCancelledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation cancelled event", "error", err)
		return nil
	}

	log := logger.WithFields("reservation_id", event.ReservationID, "event_type", models.EventReservationCancelled)
	log.Info("Processing reservation event",
		"partner_id", event.PartnerID,
		"seats", event.Seats)

	if h.indexer == nil {
		return nil
	}
	if err := h.indexer.MarkCancelled(ctx, event); err != nil {
		log.Error("Failed to mark reservation cancelled", "error", err)
		return err
	}

	return nil
}
