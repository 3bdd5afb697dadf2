package planning

import (
	"context"
	"math"
	"sort"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// Strategy is one planning policy: how the chunk queue is ordered, which
// engineers are even considered, and which of the feasible slots wins.
type Strategy interface {
	Name() domain.StrategyName

	// SortQueue orders the chunks of a batch. Sorting is stable: equal
	// keys keep their input order, so re-running the same batch yields
	// the same queue.
	SortQueue(items []domain.ChunkWithWork) []domain.ChunkWithWork

	// FilterEngineers narrows the candidate roster for one chunk. Most
	// strategies pass it through unchanged.
	FilterEngineers(ctx context.Context, run *Run, engineers []*domain.Engineer, targetDC *uuid.UUID, from, to domain.Day) ([]*domain.Engineer, error)

	// SelectBest picks the winning slot among all candidates, nil when
	// there are none.
	SelectBest(ctx context.Context, run *Run, candidates []domain.SlotSuggestion) (*domain.SlotSuggestion, error)
}

// NewStrategy returns the strategy for a name, resolving legacy aliases.
func NewStrategy(name domain.StrategyName) (Strategy, error) {
	canonical, ok := name.Canonical()
	if !ok {
		return nil, domain.ErrInvalidInput
	}
	switch canonical {
	case domain.StrategyDense:
		return denseStrategy{}, nil
	case domain.StrategySLA:
		return slaStrategy{}, nil
	case domain.StrategyOptimal:
		return optimalStrategy{}, nil
	default:
		return balancedStrategy{}, nil
	}
}

// StrategyInfo describes a strategy for the catalogue endpoint.
type StrategyInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalogue lists the strategies offered to clients.
func Catalogue() []StrategyInfo {
	return []StrategyInfo{
		{ID: "balanced", Name: "Balanced", Description: "Spread the load evenly across engineers"},
		{ID: "dense", Name: "Dense", Description: "Pack engineers' days, minimizing how many are involved"},
		{ID: "sla", Name: "SLA", Description: "Schedule by priority and deadline, as early as possible"},
	}
}

// queueKey is the shared ordering: support visits with fixed dates go
// first, then priority, then deadline, then the chunk's in-work order.
type queueKey struct {
	fixed    int
	priority int
	deadline int64
	order    int
}

func sharedKey(item domain.ChunkWithWork) queueKey {
	k := queueKey{
		priority: item.Work.Priority.Rank(),
		deadline: math.MaxInt64,
		order:    item.Chunk.Order,
	}
	if item.Work.Type == domain.WorkSupport {
		k.fixed = 0
	} else {
		k.fixed = 1
	}
	if d := item.Work.Deadline(); d != nil {
		k.deadline = d.Unix()
	}
	return k
}

func (a queueKey) less(b queueKey) bool {
	if a.fixed != b.fixed {
		return a.fixed < b.fixed
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	if a.deadline != b.deadline {
		return a.deadline < b.deadline
	}
	return a.order < b.order
}

func sortQueueBy(items []domain.ChunkWithWork, less func(a, b domain.ChunkWithWork) bool) []domain.ChunkWithWork {
	sorted := make([]domain.ChunkWithWork, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}

func keepAllEngineers(_ context.Context, _ *Run, engineers []*domain.Engineer, _ *uuid.UUID, _, _ domain.Day) ([]*domain.Engineer, error) {
	return engineers, nil
}

// loadRatio is (used+extra)/capacity for the suggestion's day; a day with
// no capacity counts as fully loaded.
func loadRatio(ctx context.Context, run *Run, s domain.SlotSuggestion, extra int) (used, capacity int, ratio float64, err error) {
	used, capacity, err = run.Load(ctx, s.EngineerID, s.Date, s.Date)
	if err != nil {
		return 0, 0, 0, err
	}
	if capacity <= 0 {
		return used, capacity, 1.0, nil
	}
	return used, capacity, float64(used+extra) / float64(capacity), nil
}

// balancedStrategy spreads load: it picks the engineer-day whose load
// ratio after the placement would be lowest.
type balancedStrategy struct{}

func (balancedStrategy) Name() domain.StrategyName { return domain.StrategyBalanced }

func (balancedStrategy) SortQueue(items []domain.ChunkWithWork) []domain.ChunkWithWork {
	return sortQueueBy(items, func(a, b domain.ChunkWithWork) bool {
		return sharedKey(a).less(sharedKey(b))
	})
}

func (balancedStrategy) FilterEngineers(ctx context.Context, run *Run, engineers []*domain.Engineer, dc *uuid.UUID, from, to domain.Day) ([]*domain.Engineer, error) {
	return keepAllEngineers(ctx, run, engineers, dc, from, to)
}

func (balancedStrategy) SelectBest(ctx context.Context, run *Run, candidates []domain.SlotSuggestion) (*domain.SlotSuggestion, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *domain.SlotSuggestion
	minRatio := math.Inf(1)

	for i := range candidates {
		cand := &candidates[i]
		_, _, ratio, err := loadRatio(ctx, run, *cand, cand.DurationHours)
		if err != nil {
			return nil, err
		}
		switch {
		case ratio < minRatio:
			minRatio = ratio
			best = cand
		case ratio == minRatio && best != nil && cand.Date.Before(best.Date.Time):
			best = cand
		}
	}
	return best, nil
}

// denseStrategy packs: longest chunks first, then each one goes to the
// most loaded engineer-day it still fits into.
type denseStrategy struct{}

func (denseStrategy) Name() domain.StrategyName { return domain.StrategyDense }

func (denseStrategy) SortQueue(items []domain.ChunkWithWork) []domain.ChunkWithWork {
	return sortQueueBy(items, func(a, b domain.ChunkWithWork) bool {
		ka, kb := sharedKey(a), sharedKey(b)
		if ka.fixed != kb.fixed {
			return ka.fixed < kb.fixed
		}
		if ka.priority != kb.priority {
			return ka.priority < kb.priority
		}
		// First-fit decreasing: long chunks are the hardest to place.
		da, db := a.Chunk.DurationHours(), b.Chunk.DurationHours()
		if da != db {
			return da > db
		}
		return ka.order < kb.order
	})
}

func (denseStrategy) FilterEngineers(ctx context.Context, run *Run, engineers []*domain.Engineer, dc *uuid.UUID, from, to domain.Day) ([]*domain.Engineer, error) {
	return keepAllEngineers(ctx, run, engineers, dc, from, to)
}

func (denseStrategy) SelectBest(ctx context.Context, run *Run, candidates []domain.SlotSuggestion) (*domain.SlotSuggestion, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var best *domain.SlotSuggestion
	maxRatio := -1.0

	for i := range candidates {
		cand := &candidates[i]
		used, capacity, _, err := loadRatio(ctx, run, *cand, 0)
		if err != nil {
			return nil, err
		}
		if used+cand.DurationHours > capacity {
			continue
		}
		ratio := 0.0
		if capacity > 0 {
			ratio = float64(used) / float64(capacity)
		}
		switch {
		case ratio > maxRatio:
			maxRatio = ratio
			best = cand
		case ratio == maxRatio && best != nil && cand.Date.Before(best.Date.Time):
			best = cand
		}
	}

	// Everything over capacity: fall back to the first feasible slot the
	// engine produced rather than failing the chunk.
	if best == nil {
		return &candidates[0], nil
	}
	return best, nil
}

// slaStrategy schedules strictly by urgency: priority, deadline, then the
// earliest possible slot.
type slaStrategy struct{}

func (slaStrategy) Name() domain.StrategyName { return domain.StrategySLA }

func (slaStrategy) SortQueue(items []domain.ChunkWithWork) []domain.ChunkWithWork {
	return sortQueueBy(items, func(a, b domain.ChunkWithWork) bool {
		ka, kb := sharedKey(a), sharedKey(b)
		// No support-first boost: criticality outranks fixed dates.
		if ka.priority != kb.priority {
			return ka.priority < kb.priority
		}
		if ka.deadline != kb.deadline {
			return ka.deadline < kb.deadline
		}
		return ka.order < kb.order
	})
}

func (slaStrategy) FilterEngineers(ctx context.Context, run *Run, engineers []*domain.Engineer, dc *uuid.UUID, from, to domain.Day) ([]*domain.Engineer, error) {
	return keepAllEngineers(ctx, run, engineers, dc, from, to)
}

func (slaStrategy) SelectBest(_ context.Context, _ *Run, candidates []domain.SlotSuggestion) (*domain.SlotSuggestion, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		cand := &candidates[i]
		if cand.Date.Before(best.Date.Time) ||
			(cand.Date.Equal(best.Date.Time) && cand.StartHour < best.StartHour) {
			best = cand
		}
	}
	return best, nil
}

// optimalStrategy is balanced selection with a DC-affinity pass: prefer
// engineers already at the target DC in the window, or with free days.
type optimalStrategy struct {
	balancedStrategy
}

func (optimalStrategy) Name() domain.StrategyName { return domain.StrategyOptimal }

func (optimalStrategy) FilterEngineers(ctx context.Context, run *Run, engineers []*domain.Engineer, targetDC *uuid.UUID, from, to domain.Day) ([]*domain.Engineer, error) {
	if targetDC == nil {
		return engineers, nil
	}

	var kept []*domain.Engineer
	for _, eng := range engineers {
		ok, err := dcAffine(ctx, run, eng.ID, targetDC, from, to)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, eng)
		}
	}
	if len(kept) == 0 {
		return engineers, nil
	}
	return kept, nil
}

// dcAffine reports whether the engineer has, somewhere in the window, a
// day either free or already spent at the target DC.
func dcAffine(ctx context.Context, run *Run, engineerID uuid.UUID, targetDC *uuid.UUID, from, to domain.Day) (bool, error) {
	for day := from; !day.After(to.Time); day = day.AddDays(1) {
		occupied, err := run.Occupied(ctx, engineerID, day)
		if err != nil {
			return false, err
		}
		if len(occupied) == 0 {
			return true, nil
		}
		for _, occ := range occupied {
			if occ.DataCenterID != nil && *occ.DataCenterID == *targetDC {
				return true, nil
			}
		}
	}
	return false, nil
}
