package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPClient publishes each subject to a durable queue of the same name
// through the default exchange.
type AMQPClient struct {
	conn *amqp.Connection

	mu       sync.Mutex
	pubCh    *amqp.Channel
	declared map[string]bool
}

func NewAMQPClient(cfg Config) (*AMQPClient, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	slog.Info("Connected to RabbitMQ")

	return &AMQPClient{
		conn:     conn,
		pubCh:    ch,
		declared: make(map[string]bool),
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	return err
}

func (c *AMQPClient) Publish(ctx context.Context, subject string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.declared[subject] {
		if err := declareQueue(c.pubCh, subject); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", subject, err)
		}
		c.declared[subject] = true
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := c.pubCh.PublishWithContext(ctx, "", subject, false, false, pub); err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", subject, err)
	}

	slog.Debug("Published message", "subject", subject)
	return nil
}

// SubscribeQueue consumes subject on its own channel. The queue argument
// is used as the consumer tag; competing consumers share the queue.
func (c *AMQPClient) SubscribeQueue(subject, queue string, handler Handler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("Failed to set QoS", "error", err)
	}

	if err := declareQueue(ch, subject); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare queue %s: %w", subject, err)
	}

	msgs, err := ch.Consume(subject, queue+"-"+subject, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to consume queue %s: %w", subject, err)
	}

	go func() {
		defer func() { _ = ch.Close() }()
		for d := range msgs {
			settle(context.Background(), subject, d, handler)
		}
		slog.Warn("Delivery channel closed", "subject", subject)
	}()

	slog.Info("Subscribed to queue", "subject", subject, "consumer", queue)
	return nil
}

// requeueDelay paces redelivery while the handler keeps failing
var requeueDelay = time.Second

// settle runs the handler for one delivery and acks it on success. A
// handler error puts the delivery back on the queue; handlers ack
// payloads they can never process themselves.
func settle(ctx context.Context, subject string, d amqp.Delivery, handler Handler) {
	if err := handler(ctx, d.Body); err != nil {
		slog.Error("Failed to handle message, requeueing",
			"subject", subject,
			"redelivered", d.Redelivered,
			"error", err)
		time.Sleep(requeueDelay)
		if err := d.Nack(false, true); err != nil {
			slog.Error("Failed to nack message", "subject", subject, "error", err)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		slog.Error("Failed to ack message", "subject", subject, "error", err)
	}
}

func (c *AMQPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.pubCh != nil {
		errs = append(errs, c.pubCh.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}
