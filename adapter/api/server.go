// Package api exposes the dispatch scheduling service over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/fieldops/dispatch/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	mux     *http.ServeMux
	handler http.Handler
	server  *http.Server
	logger  *slog.Logger

	auth      *AuthMiddleware
	works     *WorksHandler
	planning  *PlanningHandler
	directory *DirectoryHandler
	engineers *EngineersHandler
	sync      *SyncHandler
	health    *observability.HealthRegistry
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Metrics      observability.Metrics
}

// DefaultServerConfig returns the default server configuration. The write
// timeout is generous because the SSE stream lives on the same server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        "0.0.0.0:8080",
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
}

// ServerHandlers bundles the route handlers wired into a Server.
type ServerHandlers struct {
	Auth      *AuthMiddleware
	Works     *WorksHandler
	Planning  *PlanningHandler
	Directory *DirectoryHandler
	Engineers *EngineersHandler
	Sync      *SyncHandler
	Health    *observability.HealthRegistry
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg ServerConfig, h ServerHandlers, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		auth:      h.Auth,
		works:     h.Works,
		planning:  h.Planning,
		directory: h.Directory,
		engineers: h.Engineers,
		sync:      h.Sync,
		health:    h.Health,
	}

	s.registerRoutes()
	s.handler = requestObserver(s.mux, logger, metrics)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	authed := s.auth.Require

	// Works, chunks, tasks and links
	s.mux.HandleFunc("GET /api/works", authed(s.works.List))
	s.mux.HandleFunc("POST /api/works", authed(s.works.Create))
	s.mux.HandleFunc("GET /api/works/{workID}", authed(s.works.Get))
	s.mux.HandleFunc("PATCH /api/works/{workID}", authed(s.works.Update))
	s.mux.HandleFunc("DELETE /api/works/{workID}", authed(s.works.Delete))

	s.mux.HandleFunc("POST /api/works/{workID}/chunks", authed(s.works.CreateChunk))
	s.mux.HandleFunc("PATCH /api/works/{workID}/chunks/{chunkID}", authed(s.works.UpdateChunk))
	s.mux.HandleFunc("DELETE /api/works/{workID}/chunks/{chunkID}", authed(s.works.DeleteChunk))

	s.mux.HandleFunc("POST /api/works/{workID}/tasks", authed(s.works.CreateTask))
	s.mux.HandleFunc("DELETE /api/works/{workID}/tasks/{taskID}", authed(s.works.DeleteTask))

	s.mux.HandleFunc("GET /api/works/{workID}/links", authed(s.works.ListLinks))
	s.mux.HandleFunc("POST /api/works/{workID}/links", authed(s.works.CreateLink))
	s.mux.HandleFunc("DELETE /api/works/{workID}/links/{linkID}", authed(s.works.DeleteLink))

	// Scheduling operations
	s.mux.HandleFunc("GET /api/works/{workID}/chunks/{chunkID}/suggest-slot", authed(s.works.SuggestSlot))
	s.mux.HandleFunc("POST /api/works/{workID}/chunks/{chunkID}/auto-assign", authed(s.works.AutoAssignChunk))
	s.mux.HandleFunc("POST /api/works/{workID}/chunks/{chunkID}/unassign", authed(s.works.UnassignChunk))
	s.mux.HandleFunc("POST /api/works/{workID}/auto-assign", authed(s.works.AutoAssignWork))
	s.mux.HandleFunc("POST /api/works/chunks/confirm-planned", authed(s.works.ConfirmPlanned))
	s.mux.HandleFunc("POST /api/works/{workID}/cancel-all-chunks", authed(s.works.CancelAllChunks))

	// Planning sessions
	s.mux.HandleFunc("POST /api/planning/sessions", authed(s.planning.CreateSession))
	s.mux.HandleFunc("GET /api/planning/sessions", authed(s.planning.ListSessions))
	s.mux.HandleFunc("GET /api/planning/sessions/{sessionID}", authed(s.planning.GetSession))
	s.mux.HandleFunc("POST /api/planning/sessions/{sessionID}/apply", authed(s.planning.ApplySession))
	s.mux.HandleFunc("POST /api/planning/sessions/{sessionID}/cancel", authed(s.planning.CancelSession))
	s.mux.HandleFunc("DELETE /api/planning/sessions/{sessionID}", authed(s.planning.DeleteSession))
	s.mux.HandleFunc("GET /api/planning/strategies", authed(s.planning.ListStrategies))

	// Directory: regions, data centers, travel matrix
	s.mux.HandleFunc("GET /api/regions", authed(s.directory.ListRegions))
	s.mux.HandleFunc("POST /api/regions", authed(s.directory.CreateRegion))
	s.mux.HandleFunc("PATCH /api/regions/{regionID}", authed(s.directory.UpdateRegion))
	s.mux.HandleFunc("DELETE /api/regions/{regionID}", authed(s.directory.DeleteRegion))

	s.mux.HandleFunc("GET /api/datacenters", authed(s.directory.ListDataCenters))
	s.mux.HandleFunc("POST /api/datacenters", authed(s.directory.CreateDataCenter))
	s.mux.HandleFunc("PATCH /api/datacenters/{dcID}", authed(s.directory.UpdateDataCenter))
	s.mux.HandleFunc("DELETE /api/datacenters/{dcID}", authed(s.directory.DeleteDataCenter))

	s.mux.HandleFunc("GET /api/distances", authed(s.directory.ListDistances))
	s.mux.HandleFunc("POST /api/distances", authed(s.directory.SaveDistance))
	s.mux.HandleFunc("DELETE /api/distances/{distanceID}", authed(s.directory.DeleteDistance))

	// Engineers and their work windows
	s.mux.HandleFunc("GET /api/engineers", authed(s.engineers.List))
	s.mux.HandleFunc("POST /api/engineers", authed(s.engineers.Create))
	s.mux.HandleFunc("GET /api/engineers/{engineerID}", authed(s.engineers.Get))
	s.mux.HandleFunc("PATCH /api/engineers/{engineerID}", authed(s.engineers.Update))
	s.mux.HandleFunc("DELETE /api/engineers/{engineerID}", authed(s.engineers.Delete))

	s.mux.HandleFunc("GET /api/engineers/{engineerID}/slots", authed(s.engineers.ListSlots))
	s.mux.HandleFunc("POST /api/engineers/{engineerID}/slots", authed(s.engineers.CreateSlot))
	s.mux.HandleFunc("DELETE /api/engineers/{engineerID}/slots/{slotID}", authed(s.engineers.DeleteSlot))

	// Sync
	s.mux.HandleFunc("GET /api/sync/stream", authed(s.sync.Stream))
	s.mux.HandleFunc("GET /api/sync/status", authed(s.sync.Status))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	health := s.health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}

// writeDomainError translates the scheduling core's error kinds to HTTP
// statuses. Unknown errors are logged and surface as 500 without detail.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoSlot):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
