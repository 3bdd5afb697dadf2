package planning

import (
	"context"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// EventSink receives entity-change notifications. Implementations must
// never fail the calling request; delivery problems are theirs to log.
type EventSink interface {
	Emit(ctx context.Context, typ domain.EventType, entityID uuid.UUID, data any, actorID *uuid.UUID)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(context.Context, domain.EventType, uuid.UUID, any, *uuid.UUID) {}

// Notifier delivers best-effort messages to engineers about assignment
// changes. Failures never block scheduling.
type Notifier interface {
	Send(ctx context.Context, kind string, recipient uuid.UUID, data map[string]any) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, string, uuid.UUID, map[string]any) error { return nil }
