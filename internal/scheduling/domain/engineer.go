package domain

import (
	"time"

	"github.com/google/uuid"
)

// Region is the geographic partition tying engineers to data centers.
// An engineer services only data centers in their own region.
type Region struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DataCenter belongs to exactly one region.
type DataCenter struct {
	ID          uuid.UUID
	Name        string
	Description string
	RegionID    uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Engineer is a field engineer bound to a region, optionally linked
// one-to-one to a user account.
type Engineer struct {
	ID        uuid.UUID
	Name      string
	RegionID  uuid.UUID
	UserID    *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeSlot is an engineer's work window on one date, as a half-open
// [StartHour, EndHour) interval with integer hours 0-24. Slots of the
// same engineer and date never overlap.
type TimeSlot struct {
	ID         uuid.UUID
	EngineerID uuid.UUID
	Date       Day
	StartHour  int
	EndHour    int
}

// Hours is the slot's capacity in hours.
func (s TimeSlot) Hours() int {
	return s.EndHour - s.StartHour
}
