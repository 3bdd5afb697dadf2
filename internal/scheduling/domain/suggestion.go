package domain

import "github.com/google/uuid"

// SlotSuggestion is a proposed placement of one chunk: an engineer, a
// calendar day and a start hour inside that day.
type SlotSuggestion struct {
	EngineerID    uuid.UUID  `json:"engineer_id"`
	EngineerName  string     `json:"engineer_name"`
	Date          Day        `json:"date"`
	StartHour     int        `json:"start_time"`
	EndHour       int        `json:"end_time"`
	DurationHours int        `json:"duration_hours"`
	DataCenterID  *uuid.UUID `json:"dc_id,omitempty"`
	Priority      Priority   `json:"priority"`
}

// OccupiedInterval is a busy stretch of an engineer's day, with the data
// center the engineer is at during it. Travel to and from the interval is
// accounted for by the slot sweep, not stored here.
type OccupiedInterval struct {
	Start        int
	End          int
	DataCenterID *uuid.UUID
}

// SchedulingResult is the uniform outcome of planning operations. Bulk
// operations never raise partial-success errors; failures per chunk land
// in Errors while the rest proceeds.
type SchedulingResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message,omitempty"`
	Suggestion    *SlotSuggestion `json:"suggestion,omitempty"`
	AssignedCount int             `json:"assigned_count"`
	Errors        []string        `json:"errors,omitempty"`
}
