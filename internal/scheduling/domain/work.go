package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority of a work, from low to critical.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank maps priorities to sortable ranks; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 2
	}
}

// WorkType distinguishes planned works from single-day support visits.
type WorkType string

const (
	// WorkGeneral is a job planned out of chunks, with an optional deadline.
	WorkGeneral WorkType = "general"
	// WorkSupport is a single-day on-site attendance at a fixed date.
	WorkSupport WorkType = "support"
)

// WorkStatus lifecycle of a work. Scheduling drives the middle of the
// flow; draft/documented transitions are made by users.
type WorkStatus string

const (
	WorkStatusDraft      WorkStatus = "draft"
	WorkStatusCreated    WorkStatus = "created"
	WorkStatusReady      WorkStatus = "ready"
	WorkStatusScheduling WorkStatus = "scheduling"
	WorkStatusAssigned   WorkStatus = "assigned"
	WorkStatusInProgress WorkStatus = "in_progress"
	WorkStatusCompleted  WorkStatus = "completed"
	WorkStatusDocumented WorkStatus = "documented"
)

// ChunkStatus lifecycle of a chunk:
// created -> planned -> assigned -> in_progress -> completed.
type ChunkStatus string

const (
	ChunkStatusCreated    ChunkStatus = "created"
	ChunkStatusPlanned    ChunkStatus = "planned"
	ChunkStatusAssigned   ChunkStatus = "assigned"
	ChunkStatusInProgress ChunkStatus = "in_progress"
	ChunkStatusCompleted  ChunkStatus = "completed"
)

// Active reports whether the chunk occupies calendar time: planned,
// assigned and in-progress chunks block their engineer's day.
func (s ChunkStatus) Active() bool {
	return s == ChunkStatusPlanned || s == ChunkStatusAssigned || s == ChunkStatusInProgress
}

// TaskStatus of a single line item in the work plan.
type TaskStatus string

const (
	TaskStatusTodo      TaskStatus = "todo"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusPartial   TaskStatus = "partial"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Work is a job to be done: either a general work planned out of chunks or
// a support visit on a fixed day. Version is bumped on every update and
// checked on optimistic writes.
type Work struct {
	ID          uuid.UUID
	Name        string
	Description string
	Type        WorkType
	Priority    Priority
	Status      WorkStatus

	// General works: optional deadline.
	DueDate *Day

	// Support works: mandatory visit date, optional fixed start hour,
	// duration 1-12h, and the data center to attend.
	DataCenterID  *uuid.UUID
	TargetDate    *Day
	TargetTime    *int
	DurationHours *int
	ContactInfo   string

	Version   int
	AuthorID  *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deadline returns the date the work must be finished by: due date for
// general works, target date for support.
func (w *Work) Deadline() *Day {
	if w.Type == WorkSupport {
		return w.TargetDate
	}
	return w.DueDate
}

// WorkChunk is the indivisible unit of assignable work. The assignment
// triple (engineer, date, start hour) is jointly null or jointly set.
type WorkChunk struct {
	ID           uuid.UUID
	WorkID       uuid.UUID
	Title        string
	Description  string
	Order        int
	Status       ChunkStatus
	DataCenterID *uuid.UUID
	Version      int

	AssignedEngineerID *uuid.UUID
	AssignedDate       *Day
	AssignedStartHour  *int

	Tasks []WorkTask

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DurationHours is the sum over the chunk's tasks of estimate x quantity.
func (c *WorkChunk) DurationHours() int {
	total := 0
	for _, t := range c.Tasks {
		total += t.EstimatedHours * t.Quantity
	}
	return total
}

// EffectiveDC is the chunk's own data center, falling back to the work's.
func (c *WorkChunk) EffectiveDC(w *Work) *uuid.UUID {
	if c.DataCenterID != nil {
		return c.DataCenterID
	}
	if w != nil {
		return w.DataCenterID
	}
	return nil
}

// IsAssigned reports whether the assignment triple is set.
func (c *WorkChunk) IsAssigned() bool {
	return c.AssignedEngineerID != nil && c.AssignedDate != nil && c.AssignedStartHour != nil
}

// Assign sets the full assignment triple and moves the chunk to planned.
func (c *WorkChunk) Assign(engineerID uuid.UUID, day Day, startHour int) {
	c.AssignedEngineerID = &engineerID
	d := day
	c.AssignedDate = &d
	h := startHour
	c.AssignedStartHour = &h
	c.Status = ChunkStatusPlanned
}

// ClearAssignment nulls the whole triple and resets the chunk to created.
func (c *WorkChunk) ClearAssignment() {
	c.AssignedEngineerID = nil
	c.AssignedDate = nil
	c.AssignedStartHour = nil
	c.Status = ChunkStatusCreated
}

// WorkTask is a line item in the work plan. Its hours contribute to the
// owning chunk's duration.
type WorkTask struct {
	ID             uuid.UUID
	WorkID         uuid.UUID
	ChunkID        *uuid.UUID
	Title          string
	DataCenterID   *uuid.UUID
	EstimatedHours int
	Quantity       int
	Order          int
	Status         TaskStatus
	CompletionNote string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ChunkWithWork pairs a chunk with its owning work for queue building.
type ChunkWithWork struct {
	Chunk *WorkChunk
	Work  *Work
}

// DeriveWorkStatus computes the work status from its chunks' statuses.
// Returns the current status unchanged when no rule matches.
func DeriveWorkStatus(current WorkStatus, chunks []*WorkChunk) WorkStatus {
	if len(chunks) == 0 {
		return current
	}
	var anyInProgress, anyActive, anyCreated bool
	allCompleted := true
	for _, c := range chunks {
		switch c.Status {
		case ChunkStatusInProgress:
			anyInProgress = true
		case ChunkStatusCreated:
			anyCreated = true
		}
		if c.Status == ChunkStatusPlanned || c.Status == ChunkStatusAssigned {
			anyActive = true
		}
		if c.Status != ChunkStatusCompleted {
			allCompleted = false
		}
	}
	switch {
	case anyInProgress:
		return WorkStatusInProgress
	case allCompleted:
		return WorkStatusCompleted
	case anyActive && anyCreated:
		return WorkStatusScheduling
	case anyActive:
		return WorkStatusAssigned
	default:
		return current
	}
}
