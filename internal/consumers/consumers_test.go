package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ticketboss/internal/messaging"
	"ticketboss/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	confirmed []models.ReservationConfirmedEvent
	cancelled []models.ReservationCancelledEvent
	err       error
}

func (f *fakeIndexer) IndexConfirmed(_ context.Context, event models.ReservationConfirmedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, event)
	return nil
}

func (f *fakeIndexer) MarkCancelled(_ context.Context, event models.ReservationCancelledEvent) error {
	if f.err != nil {
		return f.err
	}
	f.cancelled = append(f.cancelled, event)
	return nil
}

type fakeSubscriber struct {
	handlers map[string]messaging.Handler
	queues   map[string]string
	closed   bool
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]messaging.Handler{}, queues: map[string]string{}}
}

func (f *fakeSubscriber) SubscribeQueue(subject, queue string, handler messaging.Handler) error {
	f.handlers[subject] = handler
	f.queues[subject] = queue
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.closed = true
	return nil
}

func TestConsumerServiceRoutesSubjects(t *testing.T) {
	sub := newFakeSubscriber()
	indexer := &fakeIndexer{}
	svc := NewConsumerService(sub, indexer)

	require.NoError(t, svc.Start())
	assert.Equal(t, "audit", sub.queues[models.EventReservationConfirmed])
	assert.Equal(t, "audit", sub.queues[models.EventReservationCancelled])

	ctx := context.Background()
	confirmed, _ := json.Marshal(models.ReservationConfirmedEvent{
		ReservationID: "r-1", EventID: "node-meetup-2025", PartnerID: "abc", Seats: 3, Version: 1, Timestamp: time.Now().UTC(),
	})
	cancelled, _ := json.Marshal(models.ReservationCancelledEvent{
		ReservationID: "r-1", EventID: "node-meetup-2025", PartnerID: "abc", Seats: 3, Timestamp: time.Now().UTC(),
	})

	require.NoError(t, sub.handlers[models.EventReservationConfirmed](ctx, confirmed))
	require.NoError(t, sub.handlers[models.EventReservationCancelled](ctx, cancelled))

	require.Len(t, indexer.confirmed, 1)
	assert.Equal(t, "r-1", indexer.confirmed[0].ReservationID)
	assert.Equal(t, int64(1), indexer.confirmed[0].Version)
	require.Len(t, indexer.cancelled, 1)
	assert.Equal(t, 3, indexer.cancelled[0].Seats)

	require.NoError(t, svc.Shutdown(ctx))
	assert.True(t, sub.closed)
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	indexer := &fakeIndexer{}
	h := NewHandlers(indexer)

	assert.NoError(t, h.HandleReservationConfirmed(context.Background(), []byte("{not json")))
	assert.NoError(t, h.HandleReservationCancelled(context.Background(), []byte("{not json")))
	assert.Empty(t, indexer.confirmed)
	assert.Empty(t, indexer.cancelled)
}

func TestIndexerFailureIsRedelivered(t *testing.T) {
	indexer := &fakeIndexer{err: errors.New("es down")}
	h := NewHandlers(indexer)

	data, _ := json.Marshal(models.ReservationConfirmedEvent{ReservationID: "r-2"})
	assert.Error(t, h.HandleReservationConfirmed(context.Background(), data))
}

func TestNilIndexerOnlyLogs(t *testing.T) {
	h := NewHandlers(nil)

	data, _ := json.Marshal(models.ReservationCancelledEvent{ReservationID: "r-3"})
	assert.NoError(t, h.HandleReservationCancelled(context.Background(), data))
}
