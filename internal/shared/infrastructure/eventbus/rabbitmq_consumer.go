package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConsumer consumes mirrored events from RabbitMQ and injects
// them into the local bus, so clients connected to other instances see
// changes made through this one and vice versa.
type RabbitMQConsumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     string
	bus       *Bus
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
	closeChan chan struct{}
}

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL string
	// QueueName must be unique per instance; empty means an exclusive
	// auto-named queue.
	QueueName string
	Logger    *slog.Logger
}

// NewRabbitMQConsumer connects and binds a queue to the domain events
// exchange with a wildcard: every mirrored event reaches every instance.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, bus *Bus) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	conn, ch, err := dialExchange(cfg.URL)
	if err != nil {
		return nil, err
	}

	queue, err := ch.QueueDeclare(
		cfg.QueueName,
		false,              // durable: a fresh instance resyncs anyway
		true,               // auto-delete
		cfg.QueueName == "", // exclusive when auto-named
		false,              // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, RoutingKeyPrefix+"#", ExchangeName, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue.Name, err)
	}

	cfg.Logger.Info("rabbitmq consumer connected",
		"queue", queue.Name,
		"exchange", ExchangeName,
	)

	return &RabbitMQConsumer{
		conn:      conn,
		channel:   ch,
		queue:     queue.Name,
		bus:       bus,
		logger:    cfg.Logger,
		closeChan: make(chan struct{}),
	}, nil
}

// Start begins consuming messages and injecting them into the bus. Blocks
// until the context is cancelled or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("consumer already running")
	}
	c.running = true
	c.mu.Unlock()

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag (auto-generated)
		true,  // auto-ack: events are fire-and-forget notifications
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.Info("started consuming events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-c.closeChan:
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed unexpectedly")
			}

			var event Event
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				c.logger.Error("failed to unmarshal event",
					"routing_key", msg.RoutingKey,
					"error", err,
				)
				continue
			}
			c.bus.Inject(event)
		}
	}
}

// Close closes the consumer connection.
func (c *RabbitMQConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(c.closeChan)
	c.running = false
	return closeAMQP(c.channel, c.conn, c.logger)
}
