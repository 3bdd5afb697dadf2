package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fieldops/dispatch/internal/scheduling/application/planning"
	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// WorksHandler handles the works API: CRUD over works, chunks, tasks and
// links, plus the scheduling operations delegated to the planner.
type WorksHandler struct {
	works     domain.WorkRepository
	engineers domain.EngineerRepository
	planner   *planning.Service
	events    planning.EventSink
	logger    *slog.Logger
}

// NewWorksHandler creates the works handler.
func NewWorksHandler(
	works domain.WorkRepository,
	engineers domain.EngineerRepository,
	planner *planning.Service,
	events planning.EventSink,
	logger *slog.Logger,
) *WorksHandler {
	if events == nil {
		events = planning.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorksHandler{
		works:     works,
		engineers: engineers,
		planner:   planner,
		events:    events,
		logger:    logger,
	}
}

// List handles GET /api/works. Admins and experts see all works, authors
// their own, engineers the works with a chunk assigned to them. Works
// carry their chunks annotated with scheduling constraints, same as Get.
func (h *WorksHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.WorkFilter{
		Search: r.URL.Query().Get("search"),
		Limit:  parseIntParam(r, "limit", 50),
		Offset: parseIntParam(r, "offset", 0),
	}

	for _, s := range parseListParam(r, "status") {
		filter.Statuses = append(filter.Statuses, domain.WorkStatus(s))
	}
	for _, p := range parseListParam(r, "priority") {
		filter.Priorities = append(filter.Priorities, domain.Priority(p))
	}
	for _, t := range parseListParam(r, "work_type") {
		filter.Types = append(filter.Types, domain.WorkType(t))
	}

	if parseBoolParam(r, "active_only") {
		filter.Statuses = []domain.WorkStatus{
			domain.WorkStatusCreated,
			domain.WorkStatusReady,
			domain.WorkStatusScheduling,
			domain.WorkStatusAssigned,
			domain.WorkStatusInProgress,
		}
	}
	if parseBoolParam(r, "completed_only") {
		filter.Statuses = []domain.WorkStatus{
			domain.WorkStatusCompleted,
			domain.WorkStatusDocumented,
		}
	}

	authorID, err := parseUUIDParam(r, "author_id")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	filter.AuthorID = authorID

	principal, _ := PrincipalFrom(r.Context())
	switch {
	case principal.SeesEverything():
		// Requested filters pass through unchanged.
	case principal.Role == RoleEngineer:
		eng, err := h.engineers.FindByUserID(r.Context(), principal.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusOK, map[string]any{"works": []workDTO{}})
				return
			}
			writeDomainError(w, h.logger, err)
			return
		}
		filter.EngineerID = &eng.ID
	default:
		filter.AuthorID = &principal.UserID
	}

	works, err := h.works.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	dtos := make([]workDTO, len(works))
	for i, work := range works {
		dtos[i] = toWorkDTO(work)
		dtos[i].Chunks, err = h.chunkDTOs(r, work)
		if err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"works":  dtos,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

type createWorkRequest struct {
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Type          string      `json:"work_type"`
	Priority      string      `json:"priority"`
	DueDate       *domain.Day `json:"due_date"`
	DataCenterID  *uuid.UUID  `json:"data_center_id"`
	TargetDate    *domain.Day `json:"target_date"`
	TargetTime    *int        `json:"target_time"`
	DurationHours *int        `json:"duration_hours"`
	ContactInfo   string      `json:"contact_info"`
	Draft         bool        `json:"draft"`
}

// Create handles POST /api/works. Support works materialize a single
// chunk with one task sized to the visit duration.
func (h *WorksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	work, err := h.buildWork(req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if principal, ok := PrincipalFrom(r.Context()); ok {
		work.AuthorID = &principal.UserID
	}

	if err := h.works.Save(r.Context(), work); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	if work.Type == domain.WorkSupport {
		if err := h.materializeSupportChunk(r, work); err != nil {
			writeDomainError(w, h.logger, err)
			return
		}
	}

	h.events.Emit(r.Context(), domain.EventWorkCreated, work.ID, nil, work.AuthorID)
	writeJSON(w, http.StatusCreated, toWorkDTO(work))
}

func (h *WorksHandler) buildWork(req createWorkRequest) (*domain.Work, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	workType := domain.WorkType(req.Type)
	if workType == "" {
		workType = domain.WorkGeneral
	}
	if workType != domain.WorkGeneral && workType != domain.WorkSupport {
		return nil, fmt.Errorf("%w: unknown work type %q", domain.ErrInvalidInput, req.Type)
	}

	priority := domain.Priority(req.Priority)
	if priority == "" {
		priority = domain.PriorityMedium
	}

	status := domain.WorkStatusCreated
	if req.Draft {
		status = domain.WorkStatusDraft
	}

	work := &domain.Work{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		Type:         workType,
		Priority:     priority,
		Status:       status,
		DueDate:      req.DueDate,
		DataCenterID: req.DataCenterID,
		ContactInfo:  req.ContactInfo,
	}

	if workType == domain.WorkSupport {
		if req.TargetDate == nil {
			return nil, fmt.Errorf("%w: support work requires target_date", domain.ErrInvalidInput)
		}
		if req.DataCenterID == nil {
			return nil, fmt.Errorf("%w: support work requires data_center_id", domain.ErrInvalidInput)
		}
		if req.DurationHours == nil || *req.DurationHours < 1 || *req.DurationHours > 12 {
			return nil, fmt.Errorf("%w: support duration must be 1-12 hours", domain.ErrInvalidInput)
		}
		if req.TargetTime != nil && (*req.TargetTime < 0 || *req.TargetTime > 23) {
			return nil, fmt.Errorf("%w: target_time must be 0-23", domain.ErrInvalidInput)
		}
		work.TargetDate = req.TargetDate
		work.TargetTime = req.TargetTime
		work.DurationHours = req.DurationHours
	}

	return work, nil
}

func (h *WorksHandler) materializeSupportChunk(r *http.Request, work *domain.Work) error {
	chunk := &domain.WorkChunk{
		ID:           uuid.New(),
		WorkID:       work.ID,
		Title:        work.Name,
		Order:        1,
		Status:       domain.ChunkStatusCreated,
		DataCenterID: work.DataCenterID,
	}
	if err := h.works.SaveChunk(r.Context(), chunk); err != nil {
		return err
	}

	task := &domain.WorkTask{
		ID:             uuid.New(),
		WorkID:         work.ID,
		ChunkID:        &chunk.ID,
		Title:          work.Name,
		DataCenterID:   work.DataCenterID,
		EstimatedHours: *work.DurationHours,
		Quantity:       1,
		Order:          1,
		Status:         domain.TaskStatusTodo,
	}
	return h.works.SaveTask(r.Context(), task)
}

// Get handles GET /api/works/{workID}, returning the work with its
// chunks, their tasks and their derived scheduling constraints.
func (h *WorksHandler) Get(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	work, err := h.works.FindByID(r.Context(), workID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	dto := toWorkDTO(work)
	dto.Chunks, err = h.chunkDTOs(r, work)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// chunkDTOs builds the chunk payload of one work, each chunk annotated
// with the constraints record the calendar uses for drag validation.
func (h *WorksHandler) chunkDTOs(r *http.Request, work *domain.Work) ([]chunkDTO, error) {
	chunks, err := h.works.FindChunksByWork(r.Context(), work.ID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	constraints, err := h.planner.WorkConstraints(r.Context(), work)
	if err != nil {
		return nil, err
	}

	dtos := make([]chunkDTO, 0, len(chunks))
	for _, chunk := range chunks {
		dto := toChunkDTO(chunk)
		dto.Constraints = constraints[chunk.ID]
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

type updateWorkRequest struct {
	Version       int         `json:"version"`
	Name          *string     `json:"name"`
	Description   *string     `json:"description"`
	Priority      *string     `json:"priority"`
	Status        *string     `json:"status"`
	DueDate       *domain.Day `json:"due_date"`
	DataCenterID  *uuid.UUID  `json:"data_center_id"`
	TargetDate    *domain.Day `json:"target_date"`
	TargetTime    *int        `json:"target_time"`
	DurationHours *int        `json:"duration_hours"`
	ContactInfo   *string     `json:"contact_info"`
}

// Update handles PATCH /api/works/{workID} with an optimistic version
// check: the request must carry the version it read.
func (h *WorksHandler) Update(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req updateWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	work, err := h.works.FindByID(r.Context(), workID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Version != work.Version {
		writeDomainError(w, h.logger,
			fmt.Errorf("%w: work %s version %d, request has %d", domain.ErrConflict, workID, work.Version, req.Version))
		return
	}

	if req.Name != nil {
		work.Name = *req.Name
	}
	if req.Description != nil {
		work.Description = *req.Description
	}
	if req.Priority != nil {
		work.Priority = domain.Priority(*req.Priority)
	}
	if req.Status != nil {
		work.Status = domain.WorkStatus(*req.Status)
	}
	if req.DueDate != nil {
		work.DueDate = req.DueDate
	}
	if req.DataCenterID != nil {
		work.DataCenterID = req.DataCenterID
	}
	if req.TargetDate != nil {
		work.TargetDate = req.TargetDate
	}
	if req.TargetTime != nil {
		work.TargetTime = req.TargetTime
	}
	if req.DurationHours != nil {
		work.DurationHours = req.DurationHours
	}
	if req.ContactInfo != nil {
		work.ContactInfo = *req.ContactInfo
	}

	if err := h.works.Save(r.Context(), work); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventWorkUpdated, work.ID)
	writeJSON(w, http.StatusOK, toWorkDTO(work))
}

// Delete handles DELETE /api/works/{workID}.
func (h *WorksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.works.Delete(r.Context(), workID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventWorkDeleted, workID)
	w.WriteHeader(http.StatusNoContent)
}

type createChunkRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Order        int        `json:"order"`
	DataCenterID *uuid.UUID `json:"data_center_id"`
}

// CreateChunk handles POST /api/works/{workID}/chunks.
func (h *WorksHandler) CreateChunk(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req createChunkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Title == "" {
		writeDomainError(w, h.logger, fmt.Errorf("%w: title is required", domain.ErrInvalidInput))
		return
	}

	if _, err := h.works.FindByID(r.Context(), workID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	chunk := &domain.WorkChunk{
		ID:           uuid.New(),
		WorkID:       workID,
		Title:        req.Title,
		Description:  req.Description,
		Order:        req.Order,
		Status:       domain.ChunkStatusCreated,
		DataCenterID: req.DataCenterID,
	}
	if err := h.works.SaveChunk(r.Context(), chunk); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventChunkCreated, chunk.ID)
	writeJSON(w, http.StatusCreated, toChunkDTO(chunk))
}

type updateChunkRequest struct {
	Version      int        `json:"version"`
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Order        *int       `json:"order"`
	Status       *string    `json:"status"`
	DataCenterID *uuid.UUID `json:"data_center_id"`
}

// UpdateChunk handles PATCH /api/works/{workID}/chunks/{chunkID} with an
// optimistic version check. Assignment changes go through the dedicated
// scheduling endpoints, never through this one.
func (h *WorksHandler) UpdateChunk(w http.ResponseWriter, r *http.Request) {
	chunkID, err := pathUUID(r, "chunkID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req updateChunkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	chunk, err := h.works.FindChunkByID(r.Context(), chunkID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Version != chunk.Version {
		writeDomainError(w, h.logger,
			fmt.Errorf("%w: chunk %s version %d, request has %d", domain.ErrConflict, chunkID, chunk.Version, req.Version))
		return
	}

	if req.Title != nil {
		chunk.Title = *req.Title
	}
	if req.Description != nil {
		chunk.Description = *req.Description
	}
	if req.Order != nil {
		chunk.Order = *req.Order
	}
	if req.Status != nil {
		status := domain.ChunkStatus(*req.Status)
		switch status {
		case domain.ChunkStatusCreated, domain.ChunkStatusPlanned, domain.ChunkStatusAssigned,
			domain.ChunkStatusInProgress, domain.ChunkStatusCompleted:
			chunk.Status = status
		default:
			writeDomainError(w, h.logger, fmt.Errorf("%w: unknown chunk status %q", domain.ErrInvalidInput, *req.Status))
			return
		}
	}
	if req.DataCenterID != nil {
		chunk.DataCenterID = req.DataCenterID
	}

	if err := h.works.SaveChunk(r.Context(), chunk); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventChunkUpdated, chunk.ID)
	writeJSON(w, http.StatusOK, toChunkDTO(chunk))
}

// DeleteChunk handles DELETE /api/works/{workID}/chunks/{chunkID}.
func (h *WorksHandler) DeleteChunk(w http.ResponseWriter, r *http.Request) {
	chunkID, err := pathUUID(r, "chunkID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.works.DeleteChunk(r.Context(), chunkID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventChunkDeleted, chunkID)
	w.WriteHeader(http.StatusNoContent)
}

type createTaskRequest struct {
	ChunkID        *uuid.UUID `json:"chunk_id"`
	Title          string     `json:"title"`
	DataCenterID   *uuid.UUID `json:"data_center_id"`
	EstimatedHours int        `json:"estimated_hours"`
	Quantity       int        `json:"quantity"`
	Order          int        `json:"order"`
}

// CreateTask handles POST /api/works/{workID}/tasks.
func (h *WorksHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if req.Title == "" {
		writeDomainError(w, h.logger, fmt.Errorf("%w: title is required", domain.ErrInvalidInput))
		return
	}
	if req.EstimatedHours < 1 {
		writeDomainError(w, h.logger, fmt.Errorf("%w: estimated_hours must be positive", domain.ErrInvalidInput))
		return
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	if _, err := h.works.FindByID(r.Context(), workID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	task := &domain.WorkTask{
		ID:             uuid.New(),
		WorkID:         workID,
		ChunkID:        req.ChunkID,
		Title:          req.Title,
		DataCenterID:   req.DataCenterID,
		EstimatedHours: req.EstimatedHours,
		Quantity:       req.Quantity,
		Order:          req.Order,
		Status:         domain.TaskStatusTodo,
	}
	if err := h.works.SaveTask(r.Context(), task); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventWorkUpdated, workID)
	writeJSON(w, http.StatusCreated, toTaskDTO(task))
}

// DeleteTask handles DELETE /api/works/{workID}/tasks/{taskID}.
func (h *WorksHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	taskID, err := pathUUID(r, "taskID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.works.DeleteTask(r.Context(), taskID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventWorkUpdated, workID)
	w.WriteHeader(http.StatusNoContent)
}

type createLinkRequest struct {
	ChunkID       uuid.UUID `json:"chunk_id"`
	LinkedChunkID uuid.UUID `json:"linked_chunk_id"`
	Type          string    `json:"link_type"`
}

// CreateLink handles POST /api/works/{workID}/links.
func (h *WorksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	if _, err := pathUUID(r, "workID"); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req createLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	linkType := domain.LinkType(req.Type)
	if linkType != domain.LinkSync && linkType != domain.LinkDependency {
		writeDomainError(w, h.logger, fmt.Errorf("%w: unknown link type %q", domain.ErrInvalidInput, req.Type))
		return
	}
	if req.ChunkID == req.LinkedChunkID {
		writeDomainError(w, h.logger, fmt.Errorf("%w: a chunk cannot link to itself", domain.ErrInvalidInput))
		return
	}

	link := &domain.ChunkLink{
		ID:            uuid.New(),
		ChunkID:       req.ChunkID,
		LinkedChunkID: req.LinkedChunkID,
		Type:          linkType,
	}
	if err := h.works.SaveLink(r.Context(), link); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.emit(r, domain.EventChunkUpdated, link.ChunkID)
	writeJSON(w, http.StatusCreated, toLinkDTO(link))
}

// ListLinks handles GET /api/works/{workID}/links.
func (h *WorksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	links, err := h.works.FindLinksByWork(r.Context(), workID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dtos := make([]linkDTO, len(links))
	for i, link := range links {
		dtos[i] = toLinkDTO(link)
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": dtos})
}

// DeleteLink handles DELETE /api/works/{workID}/links/{linkID}.
func (h *WorksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	linkID, err := pathUUID(r, "linkID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.works.DeleteLink(r.Context(), linkID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestSlot handles GET /api/works/{workID}/chunks/{chunkID}/suggest-slot.
// No slot is not an error: the response carries found=false with a reason.
func (h *WorksHandler) SuggestSlot(w http.ResponseWriter, r *http.Request) {
	chunkID, err := pathUUID(r, "chunkID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	preferred, err := parseUUIDParam(r, "engineer_id")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	slot, err := h.planner.SuggestSlot(r.Context(), chunkID, preferred)
	if err != nil {
		if errors.Is(err, domain.ErrNoSlot) {
			writeJSON(w, http.StatusOK, map[string]any{
				"found":  false,
				"reason": err.Error(),
			})
			return
		}
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":      true,
		"suggestion": slot,
	})
}

// AutoAssignChunk handles POST /api/works/{workID}/chunks/{chunkID}/auto-assign.
func (h *WorksHandler) AutoAssignChunk(w http.ResponseWriter, r *http.Request) {
	chunkID, err := pathUUID(r, "chunkID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	slot, err := h.planner.AssignChunk(r.Context(), chunkID, h.actor(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SchedulingResult{
		Success:       true,
		Suggestion:    slot,
		AssignedCount: 1,
	})
}

// UnassignChunk handles POST /api/works/{workID}/chunks/{chunkID}/unassign.
func (h *WorksHandler) UnassignChunk(w http.ResponseWriter, r *http.Request) {
	chunkID, err := pathUUID(r, "chunkID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if err := h.planner.UnassignChunk(r.Context(), chunkID, h.actor(r)); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SchedulingResult{Success: true})
}

type autoAssignWorkRequest struct {
	Strategy string `json:"strategy"`
}

// AutoAssignWork handles POST /api/works/{workID}/auto-assign.
func (h *WorksHandler) AutoAssignWork(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	var req autoAssignWorkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	strategy := domain.StrategyName(req.Strategy)
	if strategy == "" {
		strategy = domain.StrategyBalanced
	}

	result, err := h.planner.AssignAllChunks(r.Context(), workID, strategy, h.actor(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type confirmPlannedRequest struct {
	ChunkIDs []uuid.UUID `json:"chunk_ids"`
}

// ConfirmPlanned handles POST /api/works/chunks/confirm-planned.
func (h *WorksHandler) ConfirmPlanned(w http.ResponseWriter, r *http.Request) {
	var req confirmPlannedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if len(req.ChunkIDs) == 0 {
		writeDomainError(w, h.logger, fmt.Errorf("%w: chunk_ids is required", domain.ErrInvalidInput))
		return
	}

	result, err := h.planner.ConfirmPlanned(r.Context(), req.ChunkIDs, h.actor(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelAllChunks handles POST /api/works/{workID}/cancel-all-chunks.
func (h *WorksHandler) CancelAllChunks(w http.ResponseWriter, r *http.Request) {
	workID, err := pathUUID(r, "workID")
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	result, err := h.planner.CancelAllChunks(r.Context(), workID, h.actor(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *WorksHandler) actor(r *http.Request) *uuid.UUID {
	if principal, ok := PrincipalFrom(r.Context()); ok {
		return &principal.UserID
	}
	return nil
}

func (h *WorksHandler) emit(r *http.Request, typ domain.EventType, entityID uuid.UUID) {
	h.events.Emit(r.Context(), typ, entityID, nil, h.actor(r))
}
