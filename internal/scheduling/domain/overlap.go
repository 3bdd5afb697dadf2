package domain

import (
	"fmt"
	"sort"
)

// ValidateNoOverlap checks the travel-aware overlap invariant for one
// engineer-day: sorted by start hour, each assignment must end — plus the
// travel to the next assignment's data center — no later than the next
// one starts. The proposed interval is validated against the existing
// ones; existing intervals are assumed mutually valid.
//
// Returns ErrConflict (wrapped) on violation. Called inside the write
// transaction before committing an assignment.
func ValidateNoOverlap(existing []OccupiedInterval, proposed OccupiedInterval, travel TravelFunc) error {
	all := make([]OccupiedInterval, 0, len(existing)+1)
	all = append(all, existing...)
	all = append(all, proposed)
	sort.Slice(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	for i := 0; i < len(all)-1; i++ {
		a, b := all[i], all[i+1]
		gap := travel(a.DataCenterID, b.DataCenterID)
		if a.End+gap > b.Start {
			return fmt.Errorf("%w: interval [%d,%d) plus %dh travel overlaps [%d,%d)",
				ErrConflict, a.Start, a.End, gap, b.Start, b.End)
		}
	}
	return nil
}
