package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AMQPTransport publishes push jobs to a durable RabbitMQ queue.
// A separate worker owned by the push provider integration consumes the queue.
type AMQPTransport struct {
	url    string
	queue  string
	logger *logrus.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPTransport creates a RabbitMQ-backed transport. The connection is
// opened lazily on first Send and re-opened after it drops.
func NewAMQPTransport(url, queue string, logger *logrus.Logger) *AMQPTransport {
	return &AMQPTransport{
		url:    url,
		queue:  queue,
		logger: logger,
	}
}

// Send publishes one message carrying every device token
func (t *AMQPTransport) Send(ctx context.Context, deviceTokens []string, title, body string, data map[string]string) (bool, error) {
	if len(deviceTokens) == 0 {
		return false, nil
	}

	pub, err := buildPublishing(Message{
		DeviceTokens: deviceTokens,
		Title:        title,
		Body:         body,
		Data:         data,
	}, time.Now())
	if err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ch, err := t.ensureChannel()
	if err != nil {
		return false, err
	}

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		t.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		t.resetLocked()
		return false, fmt.Errorf("failed to publish push message: %w", err)
	}

	return true, nil
}

// Close closes the channel and connection
func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	if t.channel != nil {
		err = t.channel.Close()
	}
	if t.conn != nil {
		if cerr := t.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	t.channel = nil
	t.conn = nil
	return err
}

// ensureChannel must be called with mu held
func (t *AMQPTransport) ensureChannel() (*amqp.Channel, error) {
	if t.channel != nil && !t.channel.IsClosed() && t.conn != nil && !t.conn.IsClosed() {
		return t.channel, nil
	}
	t.resetLocked()

	conn, err := amqp.Dial(t.url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		t.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", t.queue, err)
	}

	t.logger.WithField("queue", t.queue).Info("Connected to RabbitMQ push queue")
	t.conn = conn
	t.channel = ch
	return ch, nil
}

func (t *AMQPTransport) resetLocked() {
	if t.channel != nil {
		_ = t.channel.Close()
	}
	if t.conn != nil {
		_ = t.conn.Close()
	}
	t.channel = nil
	t.conn = nil
}

func buildPublishing(msg Message, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode push message: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
