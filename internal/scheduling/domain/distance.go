package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTravelMinutes is assumed when no distance entry exists in either
// direction for a pair of data centers.
const DefaultTravelMinutes = 60

// DistanceEntry is a directed travel time between two data centers,
// unique per ordered pair.
type DistanceEntry struct {
	ID              uuid.UUID
	FromDC          uuid.UUID
	ToDC            uuid.UUID
	DurationMinutes int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type dcPair struct {
	from uuid.UUID
	to   uuid.UUID
}

// DistanceTable answers directed travel-time lookups between data centers.
// It is built once per planning run from the persisted matrix and is
// read-only afterwards.
type DistanceTable struct {
	minutes map[dcPair]int
}

// NewDistanceTable builds a table from persisted entries. Later entries
// for the same ordered pair win.
func NewDistanceTable(entries []DistanceEntry) *DistanceTable {
	m := make(map[dcPair]int, len(entries))
	for _, e := range entries {
		m[dcPair{e.FromDC, e.ToDC}] = e.DurationMinutes
	}
	return &DistanceTable{minutes: m}
}

// TravelHours returns the travel time between two data centers in whole
// hours, rounding up. Identical or missing endpoints cost nothing. When
// the directed entry is absent the reverse direction is used; when both
// are absent the default of 60 minutes applies. The reverse fallback
// never overwrites an asymmetric entry.
func (t *DistanceTable) TravelHours(from, to *uuid.UUID) int {
	if from == nil || to == nil || *from == *to {
		return 0
	}
	minutes, ok := t.minutes[dcPair{*from, *to}]
	if !ok {
		minutes, ok = t.minutes[dcPair{*to, *from}]
		if !ok {
			minutes = DefaultTravelMinutes
		}
	}
	return (minutes + 59) / 60
}

// TravelFunc is the lookup signature passed around by the planner and the
// write-time overlap validator.
type TravelFunc func(from, to *uuid.UUID) int
