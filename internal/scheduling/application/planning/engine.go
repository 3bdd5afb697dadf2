package planning

import (
	"context"
	"fmt"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// SlotEngine finds physically feasible slots: work-window containment,
// collision freedom and travel time between data centers. Whether a slot
// is desirable is the strategies' business, not the engine's.
type SlotEngine struct {
	run *Run
}

// NewSlotEngine creates an engine bound to one planning run.
func NewSlotEngine(run *Run) *SlotEngine {
	return &SlotEngine{run: run}
}

// FindAvailableSlots enumerates at most one suggestion per day for one
// engineer over [from, to]. One per day is enough for ranking; more would
// blow up combinatorics without changing strategy outcomes.
func (e *SlotEngine) FindAvailableSlots(
	ctx context.Context,
	engineer *domain.Engineer,
	chunk *domain.WorkChunk,
	work *domain.Work,
	from, to domain.Day,
) ([]domain.SlotSuggestion, error) {
	duration := chunk.DurationHours()
	if duration <= 0 {
		return nil, fmt.Errorf("%w: chunk %s has zero duration", domain.ErrInvalidInput, chunk.ID)
	}
	targetDC := chunk.EffectiveDC(work)

	var found []domain.SlotSuggestion
	for day := from; !day.After(to.Time); day = day.AddDays(1) {
		windows, err := e.run.Slots(ctx, engineer.ID, day)
		if err != nil {
			return nil, err
		}
		if len(windows) == 0 {
			continue
		}

		occupied, err := e.run.Occupied(ctx, engineer.ID, day)
		if err != nil {
			return nil, err
		}

		for _, w := range windows {
			// A support visit with a fixed hour is checked at exactly
			// that hour instead of swept.
			if work.Type == domain.WorkSupport && work.TargetTime != nil {
				start := *work.TargetTime
				if start >= w.StartHour && start+duration <= w.EndHour &&
					e.startFits(start, start+duration, duration, occupied, targetDC) {
					found = append(found, e.suggestion(engineer, day, start, duration, targetDC, work.Priority))
				}
				continue
			}

			start, ok := e.sweep(w.StartHour, w.EndHour, duration, occupied, targetDC)
			if ok {
				found = append(found, e.suggestion(engineer, day, start, duration, targetDC, work.Priority))
				break
			}
		}
	}
	return found, nil
}

// startFits reports whether the fixed interval [start, start+duration)
// is collision-free; it reuses the sweep over a window narrowed to the
// interval itself.
func (e *SlotEngine) startFits(start, end, duration int, occupied []domain.OccupiedInterval, targetDC *uuid.UUID) bool {
	_, ok := e.sweep(start, end, duration, occupied, targetDC)
	return ok
}

// sweep finds the first start hour inside [windowStart, windowEnd) where
// the chunk fits between the engineer's existing commitments, paying the
// travel time from the previous commitment's DC and to the next one's.
func (e *SlotEngine) sweep(windowStart, windowEnd, duration int, occupied []domain.OccupiedInterval, targetDC *uuid.UUID) (int, bool) {
	if len(occupied) == 0 {
		if windowStart+duration <= windowEnd {
			return windowStart, true
		}
		return 0, false
	}

	cursor := windowStart
	var prev *domain.OccupiedInterval

	for i := range occupied {
		occ := occupied[i]
		if occ.End <= windowStart {
			prev = &occupied[i]
			continue
		}
		if occ.Start >= windowEnd {
			break
		}

		potential := max(cursor, windowStart)
		if prev != nil {
			potential = max(potential, prev.End+e.run.TravelHours(prev.DataCenterID, targetDC))
		}

		travelOut := e.run.TravelHours(targetDC, occ.DataCenterID)
		if potential+duration+travelOut <= occ.Start &&
			potential >= windowStart && potential+duration <= windowEnd {
			return potential, true
		}

		cursor = max(cursor, occ.End)
		prev = &occupied[i]
	}

	potential := max(cursor, windowStart)
	if prev != nil {
		potential = max(potential, prev.End+e.run.TravelHours(prev.DataCenterID, targetDC))
	}
	if potential+duration <= windowEnd {
		return potential, true
	}
	return 0, false
}

func (e *SlotEngine) suggestion(engineer *domain.Engineer, day domain.Day, start, duration int, dcID *uuid.UUID, priority domain.Priority) domain.SlotSuggestion {
	return domain.SlotSuggestion{
		EngineerID:    engineer.ID,
		EngineerName:  engineer.Name,
		Date:          day,
		StartHour:     start,
		EndHour:       start + duration,
		DurationHours: duration,
		DataCenterID:  dcID,
		Priority:      priority,
	}
}
