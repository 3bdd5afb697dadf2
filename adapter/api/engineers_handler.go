package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fieldops/dispatch/internal/scheduling/application/planning"
	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// EngineersHandler handles engineers and their per-date work windows.
type EngineersHandler struct {
	engineers domain.EngineerRepository
	events    planning.EventSink
	logger    *slog.Logger
}

// NewEngineersHandler creates the engineers handler.
func NewEngineersHandler(engineers domain.EngineerRepository, events planning.EventSink, logger *slog.Logger) *EngineersHandler {
	if events == nil {
		events = planning.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineersHandler{engineers: engineers, events: events, logger: logger}
}

// List handles GET /api/engineers, optionally filtered by region_id.
func (h *EngineersHandler) List(w http.ResponseWriter, r *http.Request) {
	regionID, err := parseUUIDParam(r, "region_id")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var engineers []*domain.Engineer
	if regionID != nil {
		engineers, err = h.engineers.ListByRegion(r.Context(), *regionID)
	} else {
		engineers, err = h.engineers.List(r.Context())
	}
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	dtos := make([]engineerDTO, len(engineers))
	for i, eng := range engineers {
		dtos[i] = toEngineerDTO(eng)
	}
	writeJSON(w, http.StatusOK, map[string]any{"engineers": dtos})
}

type engineerRequest struct {
	Name     string     `json:"name"`
	RegionID *uuid.UUID `json:"region_id"`
	UserID   *uuid.UUID `json:"user_id"`
}

// Create handles POST /api/engineers.
func (h *EngineersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req engineerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Name == "" || req.RegionID == nil {
		writeDomainError(w, h.logger, fmt.Errorf("%w: name and region_id are required", domain.ErrInvalidInput))
		return
	}

	eng := &domain.Engineer{
		ID:       uuid.New(),
		Name:     req.Name,
		RegionID: *req.RegionID,
		UserID:   req.UserID,
	}
	if err := h.engineers.Save(r.Context(), eng); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventEngineerCreated, eng.ID)
	writeJSON(w, http.StatusCreated, toEngineerDTO(eng))
}

// Get handles GET /api/engineers/{engineerID}.
func (h *EngineersHandler) Get(w http.ResponseWriter, r *http.Request) {
	engineerID, err := pathUUID(r, "engineerID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	eng, err := h.engineers.FindByID(r.Context(), engineerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEngineerDTO(eng))
}

// Update handles PATCH /api/engineers/{engineerID}.
func (h *EngineersHandler) Update(w http.ResponseWriter, r *http.Request) {
	engineerID, err := pathUUID(r, "engineerID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req engineerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	eng, err := h.engineers.FindByID(r.Context(), engineerID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Name != "" {
		eng.Name = req.Name
	}
	if req.RegionID != nil {
		eng.RegionID = *req.RegionID
	}
	if req.UserID != nil {
		eng.UserID = req.UserID
	}
	if err := h.engineers.Save(r.Context(), eng); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventEngineerUpdated, eng.ID)
	writeJSON(w, http.StatusOK, toEngineerDTO(eng))
}

// Delete handles DELETE /api/engineers/{engineerID}.
func (h *EngineersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	engineerID, err := pathUUID(r, "engineerID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.engineers.Delete(r.Context(), engineerID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventEngineerDeleted, engineerID)
	w.WriteHeader(http.StatusNoContent)
}

// ListSlots handles GET /api/engineers/{engineerID}/slots?from=&to=.
// Defaults to the coming 30 days.
func (h *EngineersHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	engineerID, err := pathUUID(r, "engineerID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	from, err := parseDayParam(r, "from")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	to, err := parseDayParam(r, "to")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if from == nil {
		d := domain.Today()
		from = &d
	}
	if to == nil {
		d := from.AddDays(30)
		to = &d
	}

	slots, err := h.engineers.SlotsInRange(r.Context(), []uuid.UUID{engineerID}, *from, *to)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dtos := make([]slotDTO, len(slots))
	for i, slot := range slots {
		dtos[i] = toSlotDTO(slot)
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": dtos})
}

type slotRequest struct {
	Date      *domain.Day `json:"date"`
	StartHour *int        `json:"start_hour"`
	EndHour   *int        `json:"end_hour"`
}

// CreateSlot handles POST /api/engineers/{engineerID}/slots.
func (h *EngineersHandler) CreateSlot(w http.ResponseWriter, r *http.Request) {
	engineerID, err := pathUUID(r, "engineerID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req slotRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Date == nil || req.StartHour == nil || req.EndHour == nil {
		writeDomainError(w, h.logger, fmt.Errorf("%w: date, start_hour and end_hour are required", domain.ErrInvalidInput))
		return
	}
	if *req.StartHour < 0 || *req.EndHour > 24 || *req.StartHour >= *req.EndHour {
		writeDomainError(w, h.logger, fmt.Errorf("%w: slot hours must satisfy 0 <= start < end <= 24", domain.ErrInvalidInput))
		return
	}

	if _, err := h.engineers.FindByID(r.Context(), engineerID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	// Windows of one engineer-day must not overlap.
	existing, err := h.engineers.SlotsInRange(r.Context(), []uuid.UUID{engineerID}, *req.Date, *req.Date)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	for _, other := range existing {
		if *req.StartHour < other.EndHour && other.StartHour < *req.EndHour {
			writeDomainError(w, h.logger,
				fmt.Errorf("%w: overlaps existing window %d-%d", domain.ErrConflict, other.StartHour, other.EndHour))
			return
		}
	}

	slot := &domain.TimeSlot{
		ID:         uuid.New(),
		EngineerID: engineerID,
		Date:       *req.Date,
		StartHour:  *req.StartHour,
		EndHour:    *req.EndHour,
	}
	if err := h.engineers.SaveSlot(r.Context(), slot); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventSlotCreated, slot.ID)
	writeJSON(w, http.StatusCreated, toSlotDTO(slot))
}

// DeleteSlot handles DELETE /api/engineers/{engineerID}/slots/{slotID}.
func (h *EngineersHandler) DeleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathUUID(r, "slotID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.engineers.DeleteSlot(r.Context(), slotID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventSlotDeleted, slotID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *EngineersHandler) emit(r *http.Request, typ domain.EventType, entityID uuid.UUID) {
	var actor *uuid.UUID
	if principal, ok := PrincipalFrom(r.Context()); ok {
		actor = &principal.UserID
	}
	h.events.Emit(r.Context(), typ, entityID, nil, actor)
}
