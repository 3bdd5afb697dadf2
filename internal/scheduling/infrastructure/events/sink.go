// Package events bridges the scheduling core's change notifications onto
// the shared event bus.
package events

import (
	"context"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/fieldops/dispatch/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// BusSink implements the scheduling event sink by broadcasting onto the
// shared bus, from where the SSE handler and the broker mirror pick
// events up.
type BusSink struct {
	bus *eventbus.Bus
}

// NewBusSink creates a sink over the shared bus.
func NewBusSink(bus *eventbus.Bus) *BusSink {
	return &BusSink{bus: bus}
}

// Emit broadcasts one change notification. Never fails the caller.
func (s *BusSink) Emit(ctx context.Context, typ domain.EventType, entityID uuid.UUID, data any, actorID *uuid.UUID) {
	s.bus.Broadcast(ctx, eventbus.Event{
		Type:     string(typ),
		EntityID: entityID,
		Data:     data,
		ActorID:  actorID,
	})
}
