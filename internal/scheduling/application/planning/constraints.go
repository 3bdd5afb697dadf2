package planning

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// DefaultHorizonDays bounds the search window of works with no deadline.
const DefaultHorizonDays = 30

// ConstraintService derives per-chunk scheduling constraints. The UI uses
// them to validate drag-and-drop without round trips; the planner uses
// them to bound its date window.
type ConstraintService struct {
	works     domain.WorkRepository
	directory domain.DirectoryRepository

	dcRegions map[uuid.UUID]uuid.UUID
}

// NewConstraintService creates a constraint service. The DC-region cache
// is per-instance; callers that want freshness create a new one per
// request.
func NewConstraintService(works domain.WorkRepository, directory domain.DirectoryRepository) *ConstraintService {
	return &ConstraintService{
		works:     works,
		directory: directory,
		dcRegions: make(map[uuid.UUID]uuid.UUID),
	}
}

// Resolve yields the chunk's graph neighbourhood: hard predecessors,
// sync peers, the earliest date allowed by assigned predecessors and the
// date any assigned sync peer is pinned to.
func (s *ConstraintService) Resolve(ctx context.Context, chunkID uuid.UUID) (domain.DependencyInfo, error) {
	var info domain.DependencyInfo

	links, err := s.works.FindLinksByChunks(ctx, []uuid.UUID{chunkID})
	if err != nil {
		return info, fmt.Errorf("load chunk links: %w", err)
	}

	for _, link := range links {
		switch {
		case link.ChunkID == chunkID && link.Type == domain.LinkDependency:
			info.DependsOnIDs = append(info.DependsOnIDs, link.LinkedChunkID)
		case link.ChunkID == chunkID && link.Type == domain.LinkSync:
			info.SyncIDs = append(info.SyncIDs, link.LinkedChunkID)
		case link.LinkedChunkID == chunkID && link.Type == domain.LinkSync:
			// Sync is symmetric: incoming edges count too.
			if !containsID(info.SyncIDs, link.ChunkID) {
				info.SyncIDs = append(info.SyncIDs, link.ChunkID)
			}
		}
	}

	for _, depID := range info.DependsOnIDs {
		dep, err := s.works.FindChunkByID(ctx, depID)
		if err != nil {
			return info, fmt.Errorf("load dependency chunk: %w", err)
		}
		if dep.AssignedDate == nil {
			continue
		}
		candidate := dep.AssignedDate.AddDays(1)
		if info.EarliestAfter == nil || candidate.After(info.EarliestAfter.Time) {
			d := candidate
			info.EarliestAfter = &d
		}
	}

	for _, syncID := range info.SyncIDs {
		peer, err := s.works.FindChunkByID(ctx, syncID)
		if err != nil {
			return info, fmt.Errorf("load sync chunk: %w", err)
		}
		// Peers are invariantly on the same date, any assigned one decides.
		if peer.AssignedDate != nil {
			d := *peer.AssignedDate
			info.SyncPinned = &d
			break
		}
	}

	return info, nil
}

// ForChunk computes the full constraints record for one chunk.
func (s *ConstraintService) ForChunk(ctx context.Context, chunk *domain.WorkChunk, work *domain.Work) (*domain.ChunkConstraints, error) {
	c := &domain.ChunkConstraints{
		ChunkID:       chunk.ID,
		DurationHours: chunk.DurationHours(),
		DataCenterID:  chunk.EffectiveDC(work),
	}

	if c.DataCenterID != nil {
		regionID, err := s.regionOf(ctx, *c.DataCenterID)
		if err != nil {
			return nil, err
		}
		if regionID != nil {
			c.AllowedRegionIDs = []uuid.UUID{*regionID}
		}
	}

	if work.Type == domain.WorkSupport {
		if work.TargetDate != nil {
			d := *work.TargetDate
			c.FixedDate = &d
			c.MinDate = &d
			c.MaxDate = &d
		}
		if work.TargetTime != nil {
			t := *work.TargetTime
			c.FixedTime = &t
		}
	} else {
		today := domain.Today()
		c.MinDate = &today
		if work.DueDate != nil {
			d := *work.DueDate
			c.MaxDate = &d
		} else {
			d := today.AddDays(DefaultHorizonDays)
			c.MaxDate = &d
		}
	}

	info, err := s.Resolve(ctx, chunk.ID)
	if err != nil {
		return nil, err
	}
	c.DependsOnChunkIDs = info.DependsOnIDs
	c.SyncChunkIDs = info.SyncIDs

	if info.EarliestAfter != nil && (c.MinDate == nil || info.EarliestAfter.After(c.MinDate.Time)) {
		d := *info.EarliestAfter
		c.MinDate = &d
	}

	return c, nil
}

// ForWork computes constraints for every chunk of a work, keyed by chunk
// ID.
func (s *ConstraintService) ForWork(ctx context.Context, work *domain.Work) (map[uuid.UUID]*domain.ChunkConstraints, error) {
	chunks, err := s.works.FindChunksByWork(ctx, work.ID)
	if err != nil {
		return nil, fmt.Errorf("load work chunks: %w", err)
	}

	result := make(map[uuid.UUID]*domain.ChunkConstraints, len(chunks))
	for _, chunk := range chunks {
		c, err := s.ForChunk(ctx, chunk, work)
		if err != nil {
			return nil, err
		}
		result[chunk.ID] = c
	}
	return result, nil
}

// DateWindow bounds the planner's search for one chunk: support works pin
// the window to the target date, sync peers pin it to their date, and
// assigned predecessors raise the lower bound. Virtual assignments from
// the current run count as assigned, so chunks planned earlier in a
// session constrain the ones after them.
func (s *ConstraintService) DateWindow(ctx context.Context, chunk *domain.WorkChunk, work *domain.Work, virtual []domain.SessionAssignment) (from, to domain.Day, err error) {
	today := domain.Today()

	if work.Type == domain.WorkSupport {
		d := today
		if work.TargetDate != nil {
			d = *work.TargetDate
		}
		return d, d, nil
	}

	from = today
	to = today.AddDays(DefaultHorizonDays)
	if work.DueDate != nil {
		to = *work.DueDate
	}

	info, err := s.Resolve(ctx, chunk.ID)
	if err != nil {
		return from, to, err
	}

	if info.SyncPinned == nil {
		for _, syncID := range info.SyncIDs {
			if a := findVirtual(virtual, syncID); a != nil {
				d := a.Date
				info.SyncPinned = &d
				break
			}
		}
	}
	for _, depID := range info.DependsOnIDs {
		if a := findVirtual(virtual, depID); a != nil {
			candidate := a.Date.AddDays(1)
			if info.EarliestAfter == nil || candidate.After(info.EarliestAfter.Time) {
				d := candidate
				info.EarliestAfter = &d
			}
		}
	}

	if info.SyncPinned != nil {
		return *info.SyncPinned, *info.SyncPinned, nil
	}
	if info.EarliestAfter != nil && info.EarliestAfter.After(from.Time) {
		from = *info.EarliestAfter
	}
	return from, to, nil
}

func findVirtual(virtual []domain.SessionAssignment, chunkID uuid.UUID) *domain.SessionAssignment {
	for i := range virtual {
		if virtual[i].ChunkID == chunkID {
			return &virtual[i]
		}
	}
	return nil
}

func (s *ConstraintService) regionOf(ctx context.Context, dcID uuid.UUID) (*uuid.UUID, error) {
	if regionID, ok := s.dcRegions[dcID]; ok {
		return &regionID, nil
	}
	dc, err := s.directory.FindDataCenterByID(ctx, dcID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load data center: %w", err)
	}
	s.dcRegions[dcID] = dc.RegionID
	regionID := dc.RegionID
	return &regionID, nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
