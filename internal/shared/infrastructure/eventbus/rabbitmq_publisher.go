package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange mirrored domain events flow
// through. Publisher and consumer both declare it, so whichever side of
// the mirror connects first creates it.
const ExchangeName = "dispatch.domain.events"

// dialExchange opens a connection plus channel and declares the durable
// topic exchange.
func dialExchange(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}
	return conn, ch, nil
}

// closeAMQP tears down a channel and its connection. A channel close
// failure is logged rather than returned; the connection close below it
// reclaims the channel anyway.
func closeAMQP(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) error {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Warn("error closing amqp channel", "error", err)
		}
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// RabbitMQPublisher mirrors bus events to the exchange, where the
// consumers of other instances pick them up. The mutex serializes
// publishes; amqp channels are not safe for concurrent use.
type RabbitMQPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// NewRabbitMQPublisher connects to the broker and declares the exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, ch, err := dialExchange(url)
	if err != nil {
		return nil, err
	}
	logger.Info("rabbitmq publisher connected", "exchange", ExchangeName)
	return &RabbitMQPublisher{conn: conn, ch: ch, logger: logger}, nil
}

// Publish mirrors one serialized event under the given routing key.
// Persistent delivery, so in-flight events survive a broker restart.
func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.PublishWithContext(ctx, ExchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.Debug("event mirrored", "routing_key", routingKey, "bytes", len(payload))
	return nil
}

// Close releases the broker connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return closeAMQP(p.ch, p.conn, p.logger)
}

// NoopPublisher satisfies Publisher for single-instance deployments and
// tests: events stay on the in-process bus.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that drops everything.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Debug("event mirror disabled", "routing_key", routingKey, "bytes", len(payload))
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
