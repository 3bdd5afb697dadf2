package eventbus

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus(mirror Publisher) *Bus {
	return NewBus(mirror, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type capturePublisher struct {
	keys     []string
	payloads [][]byte
}

func (p *capturePublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestBus_BroadcastReachesAllSubscribers(t *testing.T) {
	bus := testBus(nil)
	id1, ch1 := bus.Subscribe()
	id2, ch2 := bus.Subscribe()
	defer bus.Unsubscribe(id1)
	defer bus.Unsubscribe(id2)

	entity := uuid.New()
	bus.Broadcast(context.Background(), Event{Type: "chunk_updated", EntityID: entity})

	e1 := <-ch1
	e2 := <-ch2
	assert.Equal(t, "chunk_updated", e1.Type)
	assert.Equal(t, entity, e1.EntityID)
	assert.False(t, e1.Timestamp.IsZero(), "timestamp is stamped on broadcast")
	assert.Equal(t, e1.EntityID, e2.EntityID)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := testBus(nil)
	id, ch := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Unsubscribe(id)
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Double unsubscribe must not panic.
	bus.Unsubscribe(id)
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := testBus(nil)
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	// Overfill the buffer without reading; Broadcast must not block.
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Broadcast(context.Background(), Event{Type: "ping", EntityID: uuid.New()})
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBus_MirrorsToPublisher(t *testing.T) {
	mirror := &capturePublisher{}
	bus := testBus(mirror)

	bus.Broadcast(context.Background(), Event{Type: "session_applied", EntityID: uuid.New()})

	require.Len(t, mirror.keys, 1)
	assert.Equal(t, RoutingKeyPrefix+"session_applied", mirror.keys[0])
	assert.Contains(t, string(mirror.payloads[0]), "session_applied")
}

func TestBus_InjectSkipsMirror(t *testing.T) {
	mirror := &capturePublisher{}
	bus := testBus(mirror)
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	bus.Inject(Event{Type: "work_updated", EntityID: uuid.New()})

	<-ch
	assert.Empty(t, mirror.keys, "injected events must not echo back to the broker")
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	bus := testBus(nil)
	_, ch := bus.Subscribe()

	require.NoError(t, bus.Close())
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())
}
