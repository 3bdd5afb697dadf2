package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldops/dispatch/internal/shared/infrastructure/eventbus"
)

// DefaultKeepalive is how often an idle SSE stream sends a ping so
// intermediaries keep the connection open.
const DefaultKeepalive = 30 * time.Second

// SyncHandler streams entity-change events to clients over SSE.
type SyncHandler struct {
	bus       *eventbus.Bus
	keepalive time.Duration
	logger    *slog.Logger
}

// NewSyncHandler creates the sync handler. Zero keepalive means the
// default of 30 seconds.
func NewSyncHandler(bus *eventbus.Bus, keepalive time.Duration, logger *slog.Logger) *SyncHandler {
	if keepalive <= 0 {
		keepalive = DefaultKeepalive
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{bus: bus, keepalive: keepalive, logger: logger}
}

// Stream handles GET /api/sync/stream. The framing is SSE: a connected
// event on open, a sync event per change, a ping when idle.
func (h *SyncHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id, ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(id)
	h.logger.Debug("sync stream opened", "subscriber_id", id)

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\":%q}\n\n", id.String())
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("sync stream closed", "subscriber_id", id)
			return

		case event, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal sync event", "type", event.Type, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: sync\ndata: %s\n\n", payload)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprint(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

// Status handles GET /api/sync/status.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"subscribers": h.bus.SubscriberCount(),
	})
}
