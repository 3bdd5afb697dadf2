package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fieldops/dispatch/internal/scheduling/application/planning"
	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// DirectoryHandler handles the geography: regions, data centers and the
// travel-time matrix.
type DirectoryHandler struct {
	directory domain.DirectoryRepository
	events    planning.EventSink
	logger    *slog.Logger
}

// NewDirectoryHandler creates the directory handler.
func NewDirectoryHandler(directory domain.DirectoryRepository, events planning.EventSink, logger *slog.Logger) *DirectoryHandler {
	if events == nil {
		events = planning.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryHandler{directory: directory, events: events, logger: logger}
}

// ListRegions handles GET /api/regions.
func (h *DirectoryHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.directory.ListRegions(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dtos := make([]regionDTO, len(regions))
	for i, region := range regions {
		dtos[i] = regionDTO{ID: region.ID, Name: region.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": dtos})
}

type regionRequest struct {
	Name string `json:"name"`
}

// CreateRegion handles POST /api/regions.
func (h *DirectoryHandler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Name == "" {
		writeDomainError(w, h.logger, fmt.Errorf("%w: name is required", domain.ErrInvalidInput))
		return
	}

	region := &domain.Region{ID: uuid.New(), Name: req.Name}
	if err := h.directory.SaveRegion(r.Context(), region); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventRegionCreated, region.ID)
	writeJSON(w, http.StatusCreated, regionDTO{ID: region.ID, Name: region.Name})
}

// UpdateRegion handles PATCH /api/regions/{regionID}.
func (h *DirectoryHandler) UpdateRegion(w http.ResponseWriter, r *http.Request) {
	regionID, err := pathUUID(r, "regionID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req regionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	region, err := h.directory.FindRegionByID(r.Context(), regionID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Name != "" {
		region.Name = req.Name
	}
	if err := h.directory.SaveRegion(r.Context(), region); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventRegionUpdated, region.ID)
	writeJSON(w, http.StatusOK, regionDTO{ID: region.ID, Name: region.Name})
}

// DeleteRegion handles DELETE /api/regions/{regionID}.
func (h *DirectoryHandler) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	regionID, err := pathUUID(r, "regionID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.directory.DeleteRegion(r.Context(), regionID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventRegionDeleted, regionID)
	w.WriteHeader(http.StatusNoContent)
}

// ListDataCenters handles GET /api/datacenters.
func (h *DirectoryHandler) ListDataCenters(w http.ResponseWriter, r *http.Request) {
	dcs, err := h.directory.ListDataCenters(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dtos := make([]dataCenterDTO, len(dcs))
	for i, dc := range dcs {
		dtos[i] = dataCenterDTO{ID: dc.ID, Name: dc.Name, Description: dc.Description, RegionID: dc.RegionID}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datacenters": dtos})
}

type dataCenterRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	RegionID    *uuid.UUID `json:"region_id"`
}

// CreateDataCenter handles POST /api/datacenters.
func (h *DirectoryHandler) CreateDataCenter(w http.ResponseWriter, r *http.Request) {
	var req dataCenterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Name == "" || req.RegionID == nil {
		writeDomainError(w, h.logger, fmt.Errorf("%w: name and region_id are required", domain.ErrInvalidInput))
		return
	}
	if _, err := h.directory.FindRegionByID(r.Context(), *req.RegionID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	dc := &domain.DataCenter{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		RegionID:    *req.RegionID,
	}
	if err := h.directory.SaveDataCenter(r.Context(), dc); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventDataCenterCreated, dc.ID)
	writeJSON(w, http.StatusCreated, dataCenterDTO{ID: dc.ID, Name: dc.Name, Description: dc.Description, RegionID: dc.RegionID})
}

// UpdateDataCenter handles PATCH /api/datacenters/{dcID}.
func (h *DirectoryHandler) UpdateDataCenter(w http.ResponseWriter, r *http.Request) {
	dcID, err := pathUUID(r, "dcID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req dataCenterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	dc, err := h.directory.FindDataCenterByID(r.Context(), dcID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Name != "" {
		dc.Name = req.Name
	}
	if req.Description != "" {
		dc.Description = req.Description
	}
	if req.RegionID != nil {
		if _, err := h.directory.FindRegionByID(r.Context(), *req.RegionID); err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
		dc.RegionID = *req.RegionID
	}
	if err := h.directory.SaveDataCenter(r.Context(), dc); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventDataCenterUpdated, dc.ID)
	writeJSON(w, http.StatusOK, dataCenterDTO{ID: dc.ID, Name: dc.Name, Description: dc.Description, RegionID: dc.RegionID})
}

// DeleteDataCenter handles DELETE /api/datacenters/{dcID}.
func (h *DirectoryHandler) DeleteDataCenter(w http.ResponseWriter, r *http.Request) {
	dcID, err := pathUUID(r, "dcID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.directory.DeleteDataCenter(r.Context(), dcID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventDataCenterDeleted, dcID)
	w.WriteHeader(http.StatusNoContent)
}

// ListDistances handles GET /api/distances.
func (h *DirectoryHandler) ListDistances(w http.ResponseWriter, r *http.Request) {
	entries, err := h.directory.ListDistances(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dtos := make([]distanceDTO, len(entries))
	for i, e := range entries {
		dtos[i] = distanceDTO{ID: e.ID, FromDC: e.FromDC, ToDC: e.ToDC, DurationMinutes: e.DurationMinutes}
	}
	writeJSON(w, http.StatusOK, map[string]any{"distances": dtos})
}

type distanceRequest struct {
	FromDC          *uuid.UUID `json:"from_dc_id"`
	ToDC            *uuid.UUID `json:"to_dc_id"`
	DurationMinutes int        `json:"duration_minutes"`
}

// SaveDistance handles POST /api/distances. Posting an existing ordered
// pair overwrites its duration.
func (h *DirectoryHandler) SaveDistance(w http.ResponseWriter, r *http.Request) {
	var req distanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.FromDC == nil || req.ToDC == nil {
		writeDomainError(w, h.logger, fmt.Errorf("%w: from_dc_id and to_dc_id are required", domain.ErrInvalidInput))
		return
	}
	if *req.FromDC == *req.ToDC {
		writeDomainError(w, h.logger, fmt.Errorf("%w: identical endpoints", domain.ErrInvalidInput))
		return
	}
	if req.DurationMinutes < 0 {
		writeDomainError(w, h.logger, fmt.Errorf("%w: duration_minutes must be non-negative", domain.ErrInvalidInput))
		return
	}

	entry := &domain.DistanceEntry{
		ID:              uuid.New(),
		FromDC:          *req.FromDC,
		ToDC:            *req.ToDC,
		DurationMinutes: req.DurationMinutes,
	}
	if err := h.directory.SaveDistance(r.Context(), entry); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, distanceDTO{ID: entry.ID, FromDC: entry.FromDC, ToDC: entry.ToDC, DurationMinutes: entry.DurationMinutes})
}

// DeleteDistance handles DELETE /api/distances/{distanceID}.
func (h *DirectoryHandler) DeleteDistance(w http.ResponseWriter, r *http.Request) {
	distanceID, err := pathUUID(r, "distanceID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.directory.DeleteDistance(r.Context(), distanceID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DirectoryHandler) emit(r *http.Request, typ domain.EventType, entityID uuid.UUID) {
	var actor *uuid.UUID
	if principal, ok := PrincipalFrom(r.Context()); ok {
		actor = &principal.UserID
	}
	h.events.Emit(r.Context(), typ, entityID, nil, actor)
}
