package consumers

import (
	"context"
	"log/slog"

	"ticketboss/internal/messaging"
	"ticketboss/internal/models"
)

const auditQueue = "audit"

type ConsumerService struct {
	subscriber messaging.Subscriber
	handlers   *Handlers
}

func NewConsumerService(subscriber messaging.Subscriber, indexer AuditIndexer) *ConsumerService {
	return &ConsumerService{
		subscriber: subscriber,
		handlers:   NewHandlers(indexer),
	}
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting reservation consumers...")

	if err := cs.subscriber.SubscribeQueue(models.EventReservationConfirmed, auditQueue, cs.handlers.HandleReservationConfirmed); err != nil {
		return err
	}

	if err := cs.subscriber.SubscribeQueue(models.EventReservationCancelled, auditQueue, cs.handlers.HandleReservationCancelled); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(_ context.Context) error {
	slog.Info("Shutting down consumer service...")

	if err := cs.subscriber.Close(); err != nil {
		slog.Error("Error closing message broker connection", "error", err)
		return err
	}

	return nil
}
