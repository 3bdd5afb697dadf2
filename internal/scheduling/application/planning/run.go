package planning

import (
	"context"
	"fmt"
	"sort"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// Run is the per-call planning context. It merges persisted assignments
// with the virtual assignments made earlier in the same call, so later
// chunks in a batch see the effects of earlier placements. A Run is never
// shared between calls; concurrent planners each own their overlay.
type Run struct {
	works     domain.WorkRepository
	engineers domain.EngineerRepository
	directory domain.DirectoryRepository

	distances *domain.DistanceTable
	dcRegions map[uuid.UUID]uuid.UUID
	virtual   []domain.SessionAssignment
	loaded    bool
}

// NewRun creates an empty planning run over the given repositories.
func NewRun(works domain.WorkRepository, engineers domain.EngineerRepository, directory domain.DirectoryRepository) *Run {
	return &Run{
		works:     works,
		engineers: engineers,
		directory: directory,
	}
}

// LoadGlobal fetches the distance matrix and the DC-to-region map once
// per run. Subsequent calls are no-ops.
func (r *Run) LoadGlobal(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	entries, err := r.directory.ListDistances(ctx)
	if err != nil {
		return fmt.Errorf("load distance matrix: %w", err)
	}
	r.distances = domain.NewDistanceTable(entries)

	dcs, err := r.directory.ListDataCenters(ctx)
	if err != nil {
		return fmt.Errorf("load data centers: %w", err)
	}
	r.dcRegions = make(map[uuid.UUID]uuid.UUID, len(dcs))
	for _, dc := range dcs {
		r.dcRegions[dc.ID] = dc.RegionID
	}

	r.loaded = true
	return nil
}

// AddVirtual records a proposed assignment so that the rest of this run
// sees the engineer as busy.
func (r *Run) AddVirtual(a domain.SessionAssignment) {
	r.virtual = append(r.virtual, a)
}

// TravelHours is the run's travel-time lookup.
func (r *Run) TravelHours(from, to *uuid.UUID) int {
	if r.distances == nil {
		r.distances = domain.NewDistanceTable(nil)
	}
	return r.distances.TravelHours(from, to)
}

// RegionOf returns the region of a data center, if known.
func (r *Run) RegionOf(dcID uuid.UUID) (uuid.UUID, bool) {
	regionID, ok := r.dcRegions[dcID]
	return regionID, ok
}

// CandidateEngineers returns the engineers eligible for a target DC:
// everyone when the DC (or its region) is unknown, otherwise the DC
// region's roster. The preferred engineer, when supplied, is moved to
// the front of the list.
func (r *Run) CandidateEngineers(ctx context.Context, dcID, preferred *uuid.UUID) ([]*domain.Engineer, error) {
	var (
		engineers []*domain.Engineer
		err       error
	)
	if dcID != nil {
		if regionID, ok := r.dcRegions[*dcID]; ok {
			engineers, err = r.engineers.ListByRegion(ctx, regionID)
		} else {
			engineers, err = r.engineers.List(ctx)
		}
	} else {
		engineers, err = r.engineers.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load candidate engineers: %w", err)
	}

	if preferred != nil {
		sort.SliceStable(engineers, func(i, j int) bool {
			return engineers[i].ID == *preferred && engineers[j].ID != *preferred
		})
	}
	return engineers, nil
}

// Slots returns the engineer's work windows on one day, ordered by start.
func (r *Run) Slots(ctx context.Context, engineerID uuid.UUID, day domain.Day) ([]*domain.TimeSlot, error) {
	slots, err := r.engineers.SlotsInRange(ctx, []uuid.UUID{engineerID}, day, day)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartHour < slots[j].StartHour })
	return slots, nil
}

// Occupied returns the engineer's busy intervals on one day, persisted
// plus virtual, sorted by start hour.
func (r *Run) Occupied(ctx context.Context, engineerID uuid.UUID, day domain.Day) ([]domain.OccupiedInterval, error) {
	occupied, err := r.engineers.OccupiedOn(ctx, engineerID, day)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}

	for _, a := range r.virtual {
		if a.EngineerID == engineerID && a.Date.Equal(day.Time) {
			occupied = append(occupied, domain.OccupiedInterval{
				Start:        a.StartHour,
				End:          a.StartHour + a.DurationHours,
				DataCenterID: a.DataCenterID,
			})
		}
	}

	sort.Slice(occupied, func(i, j int) bool { return occupied[i].Start < occupied[j].Start })
	return occupied, nil
}

// Load returns the engineer's (used, capacity) hours over a date range.
// Used counts persisted active chunks plus the run's virtual assignments;
// capacity sums the engineer's work windows.
func (r *Run) Load(ctx context.Context, engineerID uuid.UUID, from, to domain.Day) (used, capacity int, err error) {
	slots, err := r.engineers.SlotsInRange(ctx, []uuid.UUID{engineerID}, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("load capacity: %w", err)
	}
	for _, s := range slots {
		capacity += s.Hours()
	}

	assigned, err := r.engineers.AssignedHoursInRange(ctx, []uuid.UUID{engineerID}, from, to)
	if err != nil {
		return 0, 0, fmt.Errorf("load assigned hours: %w", err)
	}
	for _, hours := range assigned[engineerID] {
		used += hours
	}

	for _, a := range r.virtual {
		if a.EngineerID != engineerID {
			continue
		}
		if a.Date.Before(from.Time) || a.Date.After(to.Time) {
			continue
		}
		used += a.DurationHours
	}
	return used, capacity, nil
}

// EngineerDCOn reports the data center the engineer is already committed
// to on a day, virtual assignments first, nil when the day is free.
func (r *Run) EngineerDCOn(ctx context.Context, engineerID uuid.UUID, day domain.Day) (*uuid.UUID, error) {
	for _, a := range r.virtual {
		if a.EngineerID == engineerID && a.Date.Equal(day.Time) && a.DataCenterID != nil {
			return a.DataCenterID, nil
		}
	}

	occupied, err := r.engineers.OccupiedOn(ctx, engineerID, day)
	if err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	for _, occ := range occupied {
		if occ.DataCenterID != nil {
			return occ.DataCenterID, nil
		}
	}
	return nil, nil
}
