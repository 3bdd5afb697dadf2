package planning

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	t     *testing.T
	store *fakeStore
	sink  *recordSink
	svc   *Service
}

func newEnv(t *testing.T) *env {
	store := newFakeStore()
	sink := &recordSink{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, engineerRepo{store}, store, sessionRepo{store}, sink, nil, logger)
	return &env{t: t, store: store, sink: sink, svc: svc}
}

func (e *env) addRegion(name string) *domain.Region {
	r := &domain.Region{ID: uuid.New(), Name: name}
	require.NoError(e.t, e.store.SaveRegion(context.Background(), r))
	return r
}

func (e *env) addDC(name string, region *domain.Region) *domain.DataCenter {
	dc := &domain.DataCenter{ID: uuid.New(), Name: name, RegionID: region.ID}
	require.NoError(e.t, e.store.SaveDataCenter(context.Background(), dc))
	return dc
}

func (e *env) addDistance(from, to *domain.DataCenter, minutes int) {
	entry := &domain.DistanceEntry{ID: uuid.New(), FromDC: from.ID, ToDC: to.ID, DurationMinutes: minutes}
	require.NoError(e.t, e.store.SaveDistance(context.Background(), entry))
}

func (e *env) addEngineer(name string, region *domain.Region) *domain.Engineer {
	eng := &domain.Engineer{ID: uuid.New(), Name: name, RegionID: region.ID}
	e.store.SaveEngineer(eng)
	return eng
}

// addSlots gives the engineer a daily work window for the next n days
// starting today.
func (e *env) addSlots(eng *domain.Engineer, days, startHour, endHour int) {
	day := domain.Today()
	for i := 0; i < days; i++ {
		slot := &domain.TimeSlot{
			ID:         uuid.New(),
			EngineerID: eng.ID,
			Date:       day.AddDays(i),
			StartHour:  startHour,
			EndHour:    endHour,
		}
		require.NoError(e.t, e.store.SaveSlot(context.Background(), slot))
	}
}

func (e *env) addWork(priority domain.Priority, dueInDays int, dc *domain.DataCenter) *domain.Work {
	w := &domain.Work{
		ID:       uuid.New(),
		Name:     "work-" + uuid.NewString()[:8],
		Type:     domain.WorkGeneral,
		Priority: priority,
		Status:   domain.WorkStatusReady,
	}
	if dueInDays > 0 {
		due := domain.Today().AddDays(dueInDays)
		w.DueDate = &due
	}
	if dc != nil {
		w.DataCenterID = &dc.ID
	}
	e.store.works[w.ID] = w
	return w
}

func (e *env) addChunk(w *domain.Work, order, hours int) *domain.WorkChunk {
	c := &domain.WorkChunk{
		ID:     uuid.New(),
		WorkID: w.ID,
		Title:  "chunk",
		Order:  order,
		Status: domain.ChunkStatusCreated,
		Tasks: []domain.WorkTask{
			{ID: uuid.New(), WorkID: w.ID, EstimatedHours: hours, Quantity: 1},
		},
	}
	e.store.chunks[c.ID] = c
	return c
}

func (e *env) link(from, to *domain.WorkChunk, typ domain.LinkType) {
	l := &domain.ChunkLink{ID: uuid.New(), ChunkID: from.ID, LinkedChunkID: to.ID, Type: typ}
	require.NoError(e.t, e.store.SaveLink(context.Background(), l))
}

func (e *env) chunk(id uuid.UUID) *domain.WorkChunk {
	c, err := e.store.FindChunkByID(context.Background(), id)
	require.NoError(e.t, err)
	return c
}

// Single chunk, empty calendar: the earliest slot is today at the start
// of the work window.
func TestSuggestSlot_EmptyCalendar(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 10, 9, 18)

	work := e.addWork(domain.PriorityMedium, 10, dc)
	chunk := e.addChunk(work, 1, 4)

	slot, err := e.svc.SuggestSlot(context.Background(), chunk.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, eng.ID, slot.EngineerID)
	assert.Equal(t, domain.Today(), slot.Date)
	assert.Equal(t, 9, slot.StartHour)
	assert.Equal(t, 13, slot.EndHour)
}

func TestSuggestSlot_ChunkNotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.SuggestSlot(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSuggestSlot_NoCapacity(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	e.addEngineer("alice", region) // no time slots at all

	work := e.addWork(domain.PriorityMedium, 5, dc)
	chunk := e.addChunk(work, 1, 4)

	_, err := e.svc.SuggestSlot(context.Background(), chunk.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNoSlot)
}

// Travel between DCs: an engineer finishing at noon in DC A cannot start
// in DC B before the travel time has passed.
func TestSuggestSlot_TravelGap(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dcA := e.addDC("dc-a", region)
	dcB := e.addDC("dc-b", region)
	e.addDistance(dcA, dcB, 60)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 3, 9, 18)

	busyWork := e.addWork(domain.PriorityMedium, 5, dcA)
	busy := e.addChunk(busyWork, 1, 2)
	today := domain.Today()
	busy.Assign(eng.ID, today, 10) // 10:00-12:00 at DC A

	work := e.addWork(domain.PriorityMedium, 5, dcB)
	chunk := e.addChunk(work, 1, 3)

	slot, err := e.svc.SuggestSlot(context.Background(), chunk.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, today, slot.Date)
	assert.Equal(t, 13, slot.StartHour, "one hour of travel after the noon finish")
}

// Dependency: the dependent chunk lands on a strictly later date.
func TestAssignAllChunks_DependencyOrder(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 14, 9, 18)

	work := e.addWork(domain.PriorityMedium, 14, dc)
	first := e.addChunk(work, 1, 2)
	second := e.addChunk(work, 2, 2)
	e.link(second, first, domain.LinkDependency)

	result, err := e.svc.AssignAllChunks(context.Background(), work.ID, domain.StrategyBalanced, nil)
	require.NoError(t, err)
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, 2, result.AssignedCount)

	a, b := e.chunk(first.ID), e.chunk(second.ID)
	require.True(t, a.IsAssigned())
	require.True(t, b.IsAssigned())
	assert.True(t, b.AssignedDate.After(a.AssignedDate.Time),
		"dependent chunk %s must follow %s", b.AssignedDate, a.AssignedDate)
}

// Sync pair: once one peer has a date, the other is pinned to it.
func TestSuggestSlot_SyncPinned(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 10, 9, 18)

	work := e.addWork(domain.PriorityMedium, 10, dc)
	anchor := e.addChunk(work, 1, 2)
	peer := e.addChunk(work, 2, 2)
	e.link(anchor, peer, domain.LinkSync)

	pinned := domain.Today().AddDays(3)
	anchor.Assign(eng.ID, pinned, 9)

	slot, err := e.svc.SuggestSlot(context.Background(), peer.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, pinned, slot.Date)
}

func TestCreateSession_SyncPeersShareDate(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 10, 9, 18)

	work := e.addWork(domain.PriorityMedium, 10, dc)
	a := e.addChunk(work, 1, 2)
	b := e.addChunk(work, 2, 2)
	e.link(a, b, domain.LinkSync)

	session, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
	require.NoError(t, err)
	require.Len(t, session.Assignments, 2)
	assert.Equal(t, session.Assignments[0].Date, session.Assignments[1].Date)
}

// Session apply then cancel: every chunk returns to created with a null
// triple, and the right events fire.
func TestSession_ApplyThenCancel(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 30, 9, 18)

	var chunkIDs []uuid.UUID
	for i := 0; i < 5; i++ {
		work := e.addWork(domain.PriorityMedium, 20, dc)
		chunkIDs = append(chunkIDs, e.addChunk(work, 1, 2).ID)
	}

	session, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionDraft, session.Status)
	assert.Equal(t, 5, session.Stats.Assigned)
	assert.Equal(t, 0, session.Stats.Failed)

	for _, id := range chunkIDs {
		assert.Equal(t, domain.ChunkStatusCreated, e.chunk(id).Status, "draft must not touch chunks")
	}

	applied, err := e.svc.ApplySession(context.Background(), session.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, applied)
	for _, id := range chunkIDs {
		c := e.chunk(id)
		assert.Equal(t, domain.ChunkStatusPlanned, c.Status)
		assert.True(t, c.IsAssigned())
	}

	require.NoError(t, e.svc.CancelSession(context.Background(), session.ID, nil))
	for _, id := range chunkIDs {
		c := e.chunk(id)
		assert.Equal(t, domain.ChunkStatusCreated, c.Status)
		assert.False(t, c.IsAssigned())
	}

	assert.Equal(t, 1, e.sink.count(domain.EventSessionApplied))
	assert.Equal(t, 1, e.sink.count(domain.EventSessionCancelled))
	assert.Equal(t, 5, e.sink.count(domain.EventChunkPlanned), "one per applied chunk")
	assert.GreaterOrEqual(t, e.sink.count(domain.EventChunkUpdated), 5, "one revert per chunk")
}

// Cancel of an applied session leaves independently mutated chunks alone.
func TestCancelSession_SkipsMutatedChunks(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 10, 9, 18)

	work := e.addWork(domain.PriorityMedium, 10, dc)
	chunk := e.addChunk(work, 1, 2)

	session, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
	require.NoError(t, err)
	_, err = e.svc.ApplySession(context.Background(), session.ID, nil)
	require.NoError(t, err)

	// Someone confirms the chunk after the apply.
	confirmed := e.chunk(chunk.ID)
	confirmed.Status = domain.ChunkStatusAssigned
	require.NoError(t, e.store.SaveChunk(context.Background(), confirmed))

	require.NoError(t, e.svc.CancelSession(context.Background(), session.ID, nil))

	after := e.chunk(chunk.ID)
	assert.Equal(t, domain.ChunkStatusAssigned, after.Status, "independent mutation survives cancel")
	assert.True(t, after.IsAssigned())
	_ = eng
}

func TestApplySession_NonDraftRejected(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 5, 9, 18)
	work := e.addWork(domain.PriorityMedium, 5, dc)
	e.addChunk(work, 1, 2)

	session, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
	require.NoError(t, err)
	_, err = e.svc.ApplySession(context.Background(), session.ID, nil)
	require.NoError(t, err)

	_, err = e.svc.ApplySession(context.Background(), session.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_ = eng
}

func TestApplySession_ExpiredRejected(t *testing.T) {
	e := newEnv(t)
	session := domain.NewPlanningSession(domain.StrategyBalanced, nil)
	session.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, e.store.SaveSession(context.Background(), session))

	_, err := e.svc.ApplySession(context.Background(), session.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	stored, err := e.store.FindSessionByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, stored.Status)
}

func TestExpireSessions(t *testing.T) {
	e := newEnv(t)
	stale := domain.NewPlanningSession(domain.StrategyBalanced, nil)
	stale.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, e.store.SaveSession(context.Background(), stale))
	fresh := domain.NewPlanningSession(domain.StrategyDense, nil)
	require.NoError(t, e.store.SaveSession(context.Background(), fresh))

	require.NoError(t, e.svc.ExpireSessions(context.Background()))

	s1, _ := e.store.FindSessionByID(context.Background(), stale.ID)
	s2, _ := e.store.FindSessionByID(context.Background(), fresh.ID)
	assert.Equal(t, domain.SessionExpired, s1.Status)
	assert.Equal(t, domain.SessionDraft, s2.Status)
	assert.Equal(t, 1, e.sink.count(domain.EventSessionExpired))
}

func TestDeleteSession_AppliedRejected(t *testing.T) {
	e := newEnv(t)
	session := domain.NewPlanningSession(domain.StrategyBalanced, nil)
	session.Status = domain.SessionApplied
	require.NoError(t, e.store.SaveSession(context.Background(), session))

	err := e.svc.DeleteSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	session.Status = domain.SessionCancelled
	require.NoError(t, e.store.SaveSession(context.Background(), session))
	assert.NoError(t, e.svc.DeleteSession(context.Background(), session.ID))
}

// Unassign is idempotent: repeating it never errors and leaves the chunk
// unassigned.
func TestUnassignChunk_Idempotent(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 5, 9, 18)

	work := e.addWork(domain.PriorityMedium, 5, dc)
	chunk := e.addChunk(work, 1, 2)

	_, err := e.svc.AssignChunk(context.Background(), chunk.ID, nil)
	require.NoError(t, err)
	require.True(t, e.chunk(chunk.ID).IsAssigned())

	require.NoError(t, e.svc.UnassignChunk(context.Background(), chunk.ID, nil))
	require.NoError(t, e.svc.UnassignChunk(context.Background(), chunk.ID, nil))

	c := e.chunk(chunk.ID)
	assert.Equal(t, domain.ChunkStatusCreated, c.Status)
	assert.False(t, c.IsAssigned())
}

// A direct assignment is a tentative placement: it announces itself as
// chunk_planned, never as a plain update. The later unassign is the
// plain update.
func TestAssignChunk_EmitsPlannedEvent(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 5, 9, 18)

	work := e.addWork(domain.PriorityMedium, 5, dc)
	chunk := e.addChunk(work, 1, 2)

	_, err := e.svc.AssignChunk(context.Background(), chunk.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, e.sink.count(domain.EventChunkPlanned))
	assert.Equal(t, 0, e.sink.count(domain.EventChunkUpdated))
	assert.Equal(t, 0, e.sink.count(domain.EventChunkAssigned))

	require.NoError(t, e.svc.UnassignChunk(context.Background(), chunk.ID, nil))
	assert.Equal(t, 1, e.sink.count(domain.EventChunkUpdated))
}

// Dense packs one engineer's day; balanced spreads across the roster.
func TestStrategies_DenseVsBalanced(t *testing.T) {
	build := func(t *testing.T) (*env, []*domain.WorkChunk) {
		e := newEnv(t)
		region := e.addRegion("north")
		dc := e.addDC("dc-1", region)
		a := e.addEngineer("alice", region)
		b := e.addEngineer("bob", region)
		e.addSlots(a, 1, 9, 17)
		e.addSlots(b, 1, 9, 17)

		var chunks []*domain.WorkChunk
		for i := 0; i < 4; i++ {
			work := e.addWork(domain.PriorityMedium, 1, dc)
			chunks = append(chunks, e.addChunk(work, 1, 2))
		}
		return e, chunks
	}

	t.Run("dense", func(t *testing.T) {
		e, _ := build(t)
		session, err := e.svc.CreateSession(context.Background(), domain.StrategyDense, nil)
		require.NoError(t, err)
		require.Equal(t, 4, session.Stats.Assigned)

		engineers := make(map[uuid.UUID]int)
		for _, a := range session.Assignments {
			engineers[a.EngineerID]++
		}
		assert.Len(t, engineers, 1, "dense should use a single engineer")
	})

	t.Run("balanced", func(t *testing.T) {
		e, _ := build(t)
		session, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
		require.NoError(t, err)
		require.Equal(t, 4, session.Stats.Assigned)

		engineers := make(map[uuid.UUID]int)
		for _, a := range session.Assignments {
			engineers[a.EngineerID]++
		}
		require.Len(t, engineers, 2, "balanced should use both engineers")
		for _, n := range engineers {
			assert.Equal(t, 2, n)
		}
	})
}

// SLA schedules the critical chunk first regardless of input order.
func TestStrategies_SLAPriorityFirst(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 5, 9, 17)

	var critical *domain.WorkChunk
	for i := 0; i < 4; i++ {
		prio := domain.PriorityMedium
		if i == 2 {
			prio = domain.PriorityCritical
		}
		work := e.addWork(prio, 5, dc)
		c := e.addChunk(work, 1, 2)
		if prio == domain.PriorityCritical {
			critical = c
		}
	}

	session, err := e.svc.CreateSession(context.Background(), domain.StrategySLA, nil)
	require.NoError(t, err)
	require.NotEmpty(t, session.Assignments)
	assert.Equal(t, critical.ID, session.Assignments[0].ChunkID)
	assert.Equal(t, 9, session.Assignments[0].StartHour, "sla takes the earliest slot")
}

// Re-running session creation over the same input yields the same queue.
func TestCreateSession_Deterministic(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 30, 9, 18)

	for i := 0; i < 6; i++ {
		work := e.addWork(domain.PriorityMedium, 10+i, dc)
		e.addChunk(work, 1, 2)
	}

	first, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
	require.NoError(t, err)
	second, err := e.svc.CreateSession(context.Background(), domain.StrategyBalanced, nil)
	require.NoError(t, err)

	require.Equal(t, len(first.Assignments), len(second.Assignments))
	for i := range first.Assignments {
		assert.Equal(t, first.Assignments[i].ChunkID, second.Assignments[i].ChunkID)
		assert.Equal(t, first.Assignments[i].Date, second.Assignments[i].Date)
		assert.Equal(t, first.Assignments[i].StartHour, second.Assignments[i].StartHour)
	}
}

// A work's chunks stick to the engineer who already has one of them.
func TestAssignAllChunks_PrefersSameEngineer(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	a := e.addEngineer("alice", region)
	b := e.addEngineer("bob", region)
	e.addSlots(a, 10, 9, 18)
	e.addSlots(b, 10, 9, 18)

	work := e.addWork(domain.PriorityMedium, 10, dc)
	chunks := []*domain.WorkChunk{
		e.addChunk(work, 1, 2),
		e.addChunk(work, 2, 2),
		e.addChunk(work, 3, 2),
	}

	result, err := e.svc.AssignAllChunks(context.Background(), work.ID, domain.StrategyBalanced, nil)
	require.NoError(t, err)
	require.Equal(t, 3, result.AssignedCount)

	engineers := make(map[uuid.UUID]bool)
	for _, c := range chunks {
		got := e.chunk(c.ID)
		require.True(t, got.IsAssigned())
		engineers[*got.AssignedEngineerID] = true
	}
	assert.Len(t, engineers, 1, "all chunks of one work should share an engineer")
	_ = b
}

func TestConfirmPlannedAndCancelAll(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 10, 9, 18)

	work := e.addWork(domain.PriorityMedium, 10, dc)
	c1 := e.addChunk(work, 1, 2)
	c2 := e.addChunk(work, 2, 2)

	_, err := e.svc.AssignAllChunks(context.Background(), work.ID, domain.StrategyBalanced, nil)
	require.NoError(t, err)

	result, err := e.svc.ConfirmPlanned(context.Background(), []uuid.UUID{c1.ID, c2.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.AssignedCount)
	assert.Equal(t, domain.ChunkStatusAssigned, e.chunk(c1.ID).Status)
	assert.Equal(t, 2, e.sink.count(domain.EventChunkAssigned), "one confirmation per chunk")

	w, err := e.store.FindByID(context.Background(), work.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkStatusAssigned, w.Status)

	cancel, err := e.svc.CancelAllChunks(context.Background(), work.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cancel.AssignedCount)
	assert.Equal(t, domain.ChunkStatusCreated, e.chunk(c1.ID).Status)
	assert.Equal(t, domain.ChunkStatusCreated, e.chunk(c2.ID).Status)
}

func TestAssignAllChunks_UnknownStrategy(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	work := e.addWork(domain.PriorityMedium, 5, dc)
	_ = region

	_, err := e.svc.AssignAllChunks(context.Background(), work.ID, domain.StrategyName("greedy"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssignAllChunks_ReportsFailures(t *testing.T) {
	e := newEnv(t)
	region := e.addRegion("north")
	dc := e.addDC("dc-1", region)
	eng := e.addEngineer("alice", region)
	e.addSlots(eng, 1, 9, 12) // a single 3-hour day

	work := e.addWork(domain.PriorityMedium, 1, dc)
	e.addChunk(work, 1, 3)
	e.addChunk(work, 2, 3) // cannot fit

	result, err := e.svc.AssignAllChunks(context.Background(), work.ID, domain.StrategyBalanced, nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.AssignedCount)
	assert.Len(t, result.Errors, 1)
}
