package api

import (
	"log/slog"
	"net/http"

	"github.com/fieldops/dispatch/internal/scheduling/application/planning"
	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// PlanningHandler handles planning sessions and the strategy catalogue.
type PlanningHandler struct {
	planner *planning.Service
	logger  *slog.Logger
}

// NewPlanningHandler creates the planning handler.
func NewPlanningHandler(planner *planning.Service, logger *slog.Logger) *PlanningHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanningHandler{planner: planner, logger: logger}
}

type createSessionRequest struct {
	Strategy string `json:"strategy"`
}

// CreateSession handles POST /api/planning/sessions. The whole backlog is
// planned into a draft session; nothing is written to chunks yet.
func (h *PlanningHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	strategy := domain.StrategyName(req.Strategy)
	if strategy == "" {
		strategy = domain.StrategyBalanced
	}

	session, err := h.planner.CreateSession(r.Context(), strategy, h.userID(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(session))
}

// ListSessions handles GET /api/planning/sessions with an optional status
// filter and limit. Admins and experts see all sessions, everyone else
// their own.
func (h *PlanningHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	var scope *uuid.UUID
	if principal, ok := PrincipalFrom(r.Context()); ok && !principal.SeesEverything() {
		id := principal.UserID
		scope = &id
	}

	sessions, err := h.planner.ListSessions(r.Context(), scope)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	status := r.URL.Query().Get("status")
	limit := parseIntParam(r, "limit", 20)

	dtos := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		if status != "" && string(session.Status) != status {
			continue
		}
		dtos = append(dtos, toSessionDTO(session))
		if len(dtos) >= limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": dtos})
}

// GetSession handles GET /api/planning/sessions/{sessionID}.
func (h *PlanningHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathUUID(r, "sessionID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	session, err := h.planner.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(session))
}

// ApplySession handles POST /api/planning/sessions/{sessionID}/apply.
func (h *PlanningHandler) ApplySession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathUUID(r, "sessionID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	applied, err := h.planner.ApplySession(r.Context(), sessionID, h.userID(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"applied_count": applied,
	})
}

// CancelSession handles POST /api/planning/sessions/{sessionID}/cancel.
func (h *PlanningHandler) CancelSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathUUID(r, "sessionID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.planner.CancelSession(r.Context(), sessionID, h.userID(r)); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteSession handles DELETE /api/planning/sessions/{sessionID}. Applied
// sessions must be cancelled first.
func (h *PlanningHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathUUID(r, "sessionID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.planner.DeleteSession(r.Context(), sessionID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStrategies handles GET /api/planning/strategies.
func (h *PlanningHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"strategies": planning.Catalogue(),
	})
}

func (h *PlanningHandler) userID(r *http.Request) *uuid.UUID {
	if principal, ok := PrincipalFrom(r.Context()); ok {
		return &principal.UserID
	}
	return nil
}
