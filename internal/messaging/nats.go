package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

type NATSClient struct {
	conn stan.Conn

	mu   sync.Mutex
	subs []stan.Subscription
}

func NewNATSClient(cfg Config) (*NATSClient, error) {
	// Generate unique client ID to avoid conflicts
	uniqueClientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, uniqueClientID, stan.NatsURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	slog.Info("Connected to NATS Streaming",
		"url", cfg.URL, "cluster", cfg.ClusterID, "client", uniqueClientID)

	return &NATSClient{conn: conn}, nil
}

func (nc *NATSClient) Publish(_ context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := nc.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	slog.Debug("Published message", "subject", subject)
	return nil
}

func (nc *NATSClient) SubscribeQueue(subject, queue string, handler Handler) error {
	sub, err := nc.conn.QueueSubscribe(subject, queue, func(m *stan.Msg) {
		if err := handler(context.Background(), m.Data); err != nil {
			// not acked, redelivered after AckWait
			slog.Error("Failed to handle message", "subject", subject, "sequence", m.Sequence, "error", err)
			return
		}
		if err := m.Ack(); err != nil {
			slog.Error("Failed to ack message", "subject", subject, "sequence", m.Sequence, "error", err)
		}
	},
		stan.DurableName(subject+"-"+queue+"-durable"),
		stan.SetManualAckMode(),
		stan.AckWait(30*time.Second),
		stan.MaxInflight(1))
	if err != nil {
		return fmt.Errorf("failed to queue subscribe to subject %s: %w", subject, err)
	}

	nc.mu.Lock()
	nc.subs = append(nc.subs, sub)
	nc.mu.Unlock()

	slog.Info("Subscribed to subject", "subject", subject, "queue", queue)
	return nil
}

func (nc *NATSClient) Close() error {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	for _, sub := range nc.subs {
		if err := sub.Close(); err != nil {
			slog.Warn("Failed to close subscription", "error", err)
		}
	}
	nc.subs = nil

	if nc.conn != nil {
		return nc.conn.Close()
	}
	return nil
}
