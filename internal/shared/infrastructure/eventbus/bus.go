package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoutingKeyPrefix prefixes every mirrored event's routing key; the event
// type is appended (dispatch.event.chunk_updated).
const RoutingKeyPrefix = "dispatch.event."

// subscriberBuffer is each subscriber's queue depth. A slow SSE client
// loses events rather than blocking planners; clients recover with a full
// resync on reconnect.
const subscriberBuffer = 64

// Event is one change notification fanned out to connected clients and
// mirrored to the broker.
type Event struct {
	Type      string     `json:"type"`
	EntityID  uuid.UUID  `json:"entity_id"`
	Data      any        `json:"data,omitempty"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Bus fans events out to in-process subscribers (the SSE handler) and
// mirrors them to an optional broker publisher for other instances.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Event
	mirror Publisher
	logger *slog.Logger
}

// NewBus creates a bus. A nil mirror publisher disables broker mirroring.
func NewBus(mirror Publisher, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[uuid.UUID]chan Event),
		mirror: mirror,
		logger: logger,
	}
}

// Subscribe registers a new subscriber and returns its ID and channel.
// The caller must Unsubscribe when done.
func (b *Bus) Subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
	}
}

// SubscriberCount returns the number of connected subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Broadcast delivers the event to every subscriber and mirrors it to the
// broker. Subscribers with full queues are skipped.
func (b *Bus) Broadcast(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				"subscriber_id", id,
				"type", event.Type,
			)
		}
	}
	b.mu.RUnlock()

	if b.mirror != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			b.logger.Error("event marshal failed", "type", event.Type, "error", err)
			return
		}
		if err := b.mirror.Publish(ctx, RoutingKeyPrefix+event.Type, payload); err != nil {
			b.logger.Error("event mirror failed", "type", event.Type, "error", err)
		}
	}
}

// Inject delivers an event from the broker to local subscribers only,
// without mirroring it back.
func (b *Bus) Inject(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("event dropped for slow subscriber",
				"subscriber_id", id,
				"type", event.Type,
			)
		}
	}
}

// Close unsubscribes everyone and closes the mirror publisher.
func (b *Bus) Close() error {
	b.mu.Lock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()

	if b.mirror != nil {
		return b.mirror.Close()
	}
	return nil
}
