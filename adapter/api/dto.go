package api

import (
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

type workDTO struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	Type          string      `json:"work_type"`
	Priority      string      `json:"priority"`
	Status        string      `json:"status"`
	DueDate       *domain.Day `json:"due_date,omitempty"`
	DataCenterID  *uuid.UUID  `json:"data_center_id,omitempty"`
	TargetDate    *domain.Day `json:"target_date,omitempty"`
	TargetTime    *int        `json:"target_time,omitempty"`
	DurationHours *int        `json:"duration_hours,omitempty"`
	ContactInfo   string      `json:"contact_info,omitempty"`
	Version       int         `json:"version"`
	AuthorID      *uuid.UUID  `json:"author_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Chunks        []chunkDTO  `json:"chunks,omitempty"`
}

func toWorkDTO(w *domain.Work) workDTO {
	return workDTO{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		Type:          string(w.Type),
		Priority:      string(w.Priority),
		Status:        string(w.Status),
		DueDate:       w.DueDate,
		DataCenterID:  w.DataCenterID,
		TargetDate:    w.TargetDate,
		TargetTime:    w.TargetTime,
		DurationHours: w.DurationHours,
		ContactInfo:   w.ContactInfo,
		Version:       w.Version,
		AuthorID:      w.AuthorID,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

type chunkDTO struct {
	ID                 uuid.UUID   `json:"id"`
	WorkID             uuid.UUID   `json:"work_id"`
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	Order              int         `json:"order"`
	Status             string      `json:"status"`
	DataCenterID       *uuid.UUID  `json:"data_center_id,omitempty"`
	Version            int         `json:"version"`
	AssignedEngineerID *uuid.UUID  `json:"assigned_engineer_id,omitempty"`
	AssignedDate       *domain.Day `json:"assigned_date,omitempty"`
	AssignedStartHour  *int        `json:"start_time,omitempty"`
	DurationHours      int         `json:"duration_hours"`
	Tasks              []taskDTO   `json:"tasks,omitempty"`

	// Derived, never persisted; filled by the works endpoints.
	Constraints *domain.ChunkConstraints `json:"constraints,omitempty"`
}

func toChunkDTO(c *domain.WorkChunk) chunkDTO {
	dto := chunkDTO{
		ID:                 c.ID,
		WorkID:             c.WorkID,
		Title:              c.Title,
		Description:        c.Description,
		Order:              c.Order,
		Status:             string(c.Status),
		DataCenterID:       c.DataCenterID,
		Version:            c.Version,
		AssignedEngineerID: c.AssignedEngineerID,
		AssignedDate:       c.AssignedDate,
		AssignedStartHour:  c.AssignedStartHour,
		DurationHours:      c.DurationHours(),
	}
	for i := range c.Tasks {
		dto.Tasks = append(dto.Tasks, toTaskDTO(&c.Tasks[i]))
	}
	return dto
}

type taskDTO struct {
	ID             uuid.UUID  `json:"id"`
	WorkID         uuid.UUID  `json:"work_id"`
	ChunkID        *uuid.UUID `json:"chunk_id,omitempty"`
	Title          string     `json:"title"`
	DataCenterID   *uuid.UUID `json:"data_center_id,omitempty"`
	EstimatedHours int        `json:"estimated_hours"`
	Quantity       int        `json:"quantity"`
	Order          int        `json:"order"`
	Status         string     `json:"status"`
	CompletionNote string     `json:"completion_note,omitempty"`
}

func toTaskDTO(t *domain.WorkTask) taskDTO {
	return taskDTO{
		ID:             t.ID,
		WorkID:         t.WorkID,
		ChunkID:        t.ChunkID,
		Title:          t.Title,
		DataCenterID:   t.DataCenterID,
		EstimatedHours: t.EstimatedHours,
		Quantity:       t.Quantity,
		Order:          t.Order,
		Status:         string(t.Status),
		CompletionNote: t.CompletionNote,
	}
}

type linkDTO struct {
	ID            uuid.UUID `json:"id"`
	ChunkID       uuid.UUID `json:"chunk_id"`
	LinkedChunkID uuid.UUID `json:"linked_chunk_id"`
	Type          string    `json:"link_type"`
}

func toLinkDTO(l *domain.ChunkLink) linkDTO {
	return linkDTO{
		ID:            l.ID,
		ChunkID:       l.ChunkID,
		LinkedChunkID: l.LinkedChunkID,
		Type:          string(l.Type),
	}
}

type sessionDTO struct {
	ID          uuid.UUID                  `json:"id"`
	UserID      *uuid.UUID                 `json:"user_id,omitempty"`
	Strategy    string                     `json:"strategy"`
	Status      string                     `json:"status"`
	Assignments []domain.SessionAssignment `json:"assignments"`
	Stats       domain.SessionStats        `json:"stats"`
	ExpiresAt   time.Time                  `json:"expires_at"`
	CreatedAt   time.Time                  `json:"created_at"`
}

func toSessionDTO(s *domain.PlanningSession) sessionDTO {
	return sessionDTO{
		ID:          s.ID,
		UserID:      s.UserID,
		Strategy:    string(s.Strategy),
		Status:      string(s.Status),
		Assignments: s.Assignments,
		Stats:       s.Stats,
		ExpiresAt:   s.ExpiresAt,
		CreatedAt:   s.CreatedAt,
	}
}

type regionDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type dataCenterDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	RegionID    uuid.UUID `json:"region_id"`
}

type distanceDTO struct {
	ID              uuid.UUID `json:"id"`
	FromDC          uuid.UUID `json:"from_dc_id"`
	ToDC            uuid.UUID `json:"to_dc_id"`
	DurationMinutes int       `json:"duration_minutes"`
}

type engineerDTO struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	RegionID uuid.UUID  `json:"region_id"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
}

func toEngineerDTO(e *domain.Engineer) engineerDTO {
	return engineerDTO{ID: e.ID, Name: e.Name, RegionID: e.RegionID, UserID: e.UserID}
}

type slotDTO struct {
	ID         uuid.UUID  `json:"id"`
	EngineerID uuid.UUID  `json:"engineer_id"`
	Date       domain.Day `json:"date"`
	StartHour  int        `json:"start_hour"`
	EndHour    int        `json:"end_hour"`
}

func toSlotDTO(s *domain.TimeSlot) slotDTO {
	return slotDTO{ID: s.ID, EngineerID: s.EngineerID, Date: s.Date, StartHour: s.StartHour, EndHour: s.EndHour}
}
