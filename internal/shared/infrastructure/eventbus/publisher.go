package eventbus

import (
	"context"
)

// Publisher defines the interface for mirroring events to a message
// broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}
