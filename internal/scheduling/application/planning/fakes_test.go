package planning

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// fakeStore is an in-memory implementation of the four repositories,
// close enough to the real thing to drive end-to-end planning scenarios.
type fakeStore struct {
	mu sync.Mutex

	works     map[uuid.UUID]*domain.Work
	chunks    map[uuid.UUID]*domain.WorkChunk
	tasks     map[uuid.UUID]*domain.WorkTask
	links     map[uuid.UUID]*domain.ChunkLink
	engineers map[uuid.UUID]*domain.Engineer
	slots     map[uuid.UUID]*domain.TimeSlot
	regions   map[uuid.UUID]*domain.Region
	dcs       map[uuid.UUID]*domain.DataCenter
	distances map[uuid.UUID]domain.DistanceEntry
	sessions  map[uuid.UUID]*domain.PlanningSession
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		works:     make(map[uuid.UUID]*domain.Work),
		chunks:    make(map[uuid.UUID]*domain.WorkChunk),
		tasks:     make(map[uuid.UUID]*domain.WorkTask),
		links:     make(map[uuid.UUID]*domain.ChunkLink),
		engineers: make(map[uuid.UUID]*domain.Engineer),
		slots:     make(map[uuid.UUID]*domain.TimeSlot),
		regions:   make(map[uuid.UUID]*domain.Region),
		dcs:       make(map[uuid.UUID]*domain.DataCenter),
		distances: make(map[uuid.UUID]domain.DistanceEntry),
		sessions:  make(map[uuid.UUID]*domain.PlanningSession),
	}
}

func copyChunk(c *domain.WorkChunk) *domain.WorkChunk {
	cp := *c
	cp.Tasks = append([]domain.WorkTask(nil), c.Tasks...)
	return &cp
}

// --- WorkRepository ---

func (f *fakeStore) Save(_ context.Context, work *domain.Work) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *work
	cp.Version++
	f.works[work.ID] = &cp
	work.Version = cp.Version
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id uuid.UUID) (*domain.Work, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.works[id]
	if !ok {
		return nil, fmt.Errorf("%w: work %s", domain.ErrNotFound, id)
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context, _ domain.WorkFilter) ([]*domain.Work, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Work
	for _, w := range f.works {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.works, id)
	return nil
}

func (f *fakeStore) SaveChunk(_ context.Context, chunk *domain.WorkChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := copyChunk(chunk)
	cp.Version++
	f.chunks[chunk.ID] = cp
	chunk.Version = cp.Version
	return nil
}

func (f *fakeStore) FindChunkByID(_ context.Context, id uuid.UUID) (*domain.WorkChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[id]
	if !ok {
		return nil, fmt.Errorf("%w: chunk %s", domain.ErrNotFound, id)
	}
	return copyChunk(c), nil
}

func (f *fakeStore) FindChunksByWork(_ context.Context, workID uuid.UUID) ([]*domain.WorkChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.WorkChunk
	for _, c := range f.chunks {
		if c.WorkID == workID {
			out = append(out, copyChunk(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeStore) DeleteChunk(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.chunks, id)
	return nil
}

func (f *fakeStore) UnassignedChunks(_ context.Context, workIDs []uuid.UUID) ([]domain.ChunkWithWork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(workIDs))
	for _, id := range workIDs {
		wanted[id] = true
	}
	var out []domain.ChunkWithWork
	for _, c := range f.chunks {
		if c.Status != domain.ChunkStatusCreated {
			continue
		}
		if len(workIDs) > 0 && !wanted[c.WorkID] {
			continue
		}
		w, ok := f.works[c.WorkID]
		if !ok {
			continue
		}
		wc := *w
		out = append(out, domain.ChunkWithWork{Chunk: copyChunk(c), Work: &wc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Work.ID != out[j].Work.ID {
			return out[i].Work.ID.String() < out[j].Work.ID.String()
		}
		return out[i].Chunk.Order < out[j].Chunk.Order
	})
	return out, nil
}

func (f *fakeStore) AssignChunk(ctx context.Context, chunkID uuid.UUID, expectedVersion int, engineerID uuid.UUID, date domain.Day, startHour int, travel domain.TravelFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[chunkID]
	if !ok {
		return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
	}
	if c.Version != expectedVersion {
		return fmt.Errorf("%w: version %d != %d", domain.ErrConflict, c.Version, expectedVersion)
	}
	if err := f.validateAssignment(c, engineerID, date, startHour, travel); err != nil {
		return err
	}
	c.Assign(engineerID, date, startHour)
	c.Version++
	return nil
}

func (f *fakeStore) AssignChunks(_ context.Context, writes []domain.ChunkAssignmentWrite, travel domain.TravelFunc) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var applied []uuid.UUID
	for _, w := range writes {
		c, ok := f.chunks[w.ChunkID]
		if !ok || c.Status != domain.ChunkStatusCreated {
			continue
		}
		if err := f.validateAssignment(c, w.EngineerID, w.Date, w.StartHour, travel); err != nil {
			return nil, err
		}
		c.Assign(w.EngineerID, w.Date, w.StartHour)
		c.Version++
		applied = append(applied, w.ChunkID)
	}
	return applied, nil
}

func (f *fakeStore) validateAssignment(c *domain.WorkChunk, engineerID uuid.UUID, date domain.Day, startHour int, travel domain.TravelFunc) error {
	work := f.works[c.WorkID]
	existing := f.occupiedLocked(engineerID, date)
	proposed := domain.OccupiedInterval{
		Start:        startHour,
		End:          startHour + c.DurationHours(),
		DataCenterID: c.EffectiveDC(work),
	}
	return domain.ValidateNoOverlap(existing, proposed, travel)
}

func (f *fakeStore) ClearChunkAssignment(_ context.Context, chunkID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chunks[chunkID]
	if !ok {
		return fmt.Errorf("%w: chunk %s", domain.ErrNotFound, chunkID)
	}
	if c.IsAssigned() {
		c.ClearAssignment()
		c.Version++
	}
	return nil
}

func (f *fakeStore) SaveTask(_ context.Context, task *domain.WorkTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

func (f *fakeStore) FindTasksByWork(_ context.Context, workID uuid.UUID) ([]*domain.WorkTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.WorkTask
	for _, t := range f.tasks {
		if t.WorkID == workID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) SaveLink(_ context.Context, link *domain.ChunkLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteLink(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, id)
	return nil
}

func (f *fakeStore) FindLinksByWork(_ context.Context, workID uuid.UUID) ([]*domain.ChunkLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.ChunkLink
	for _, l := range f.links {
		from, okFrom := f.chunks[l.ChunkID]
		if okFrom && from.WorkID == workID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) FindLinksByChunks(_ context.Context, chunkIDs []uuid.UUID) ([]*domain.ChunkLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		wanted[id] = true
	}
	var out []*domain.ChunkLink
	for _, l := range f.links {
		if wanted[l.ChunkID] || wanted[l.LinkedChunkID] {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- EngineerRepository ---

func (f *fakeStore) SaveEngineer(eng *domain.Engineer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *eng
	f.engineers[eng.ID] = &cp
}

func (f *fakeStore) FindEngineerByID(_ context.Context, id uuid.UUID) (*domain.Engineer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.engineers[id]
	if !ok {
		return nil, fmt.Errorf("%w: engineer %s", domain.ErrNotFound, id)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) FindByUserID(_ context.Context, userID uuid.UUID) (*domain.Engineer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.engineers {
		if e.UserID != nil && *e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: engineer for user %s", domain.ErrNotFound, userID)
}

func (f *fakeStore) ListEngineers(_ context.Context) ([]*domain.Engineer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listEngineersLocked(nil), nil
}

func (f *fakeStore) ListByRegion(_ context.Context, regionID uuid.UUID) ([]*domain.Engineer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listEngineersLocked(&regionID), nil
}

func (f *fakeStore) listEngineersLocked(regionID *uuid.UUID) []*domain.Engineer {
	var out []*domain.Engineer
	for _, e := range f.engineers {
		if regionID != nil && e.RegionID != *regionID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeStore) DeleteEngineer(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.engineers, id)
	return nil
}

func (f *fakeStore) SaveSlot(_ context.Context, slot *domain.TimeSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *slot
	f.slots[slot.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteSlot(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.slots, id)
	return nil
}

func (f *fakeStore) SlotsInRange(_ context.Context, engineerIDs []uuid.UUID, from, to domain.Day) ([]*domain.TimeSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(engineerIDs))
	for _, id := range engineerIDs {
		wanted[id] = true
	}
	var out []*domain.TimeSlot
	for _, s := range f.slots {
		if len(engineerIDs) > 0 && !wanted[s.EngineerID] {
			continue
		}
		if s.Date.Before(from.Time) || s.Date.After(to.Time) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].StartHour < out[j].StartHour
	})
	return out, nil
}

func (f *fakeStore) OccupiedOn(_ context.Context, engineerID uuid.UUID, date domain.Day) ([]domain.OccupiedInterval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.occupiedLocked(engineerID, date), nil
}

func (f *fakeStore) occupiedLocked(engineerID uuid.UUID, date domain.Day) []domain.OccupiedInterval {
	var out []domain.OccupiedInterval
	for _, c := range f.chunks {
		if !c.Status.Active() || !c.IsAssigned() {
			continue
		}
		if *c.AssignedEngineerID != engineerID || !c.AssignedDate.Equal(date.Time) {
			continue
		}
		out = append(out, domain.OccupiedInterval{
			Start:        *c.AssignedStartHour,
			End:          *c.AssignedStartHour + c.DurationHours(),
			DataCenterID: c.EffectiveDC(f.works[c.WorkID]),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func (f *fakeStore) AssignedHoursInRange(_ context.Context, engineerIDs []uuid.UUID, from, to domain.Day) (map[uuid.UUID]map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(engineerIDs))
	for _, id := range engineerIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]map[string]int)
	for _, c := range f.chunks {
		if !c.Status.Active() || !c.IsAssigned() {
			continue
		}
		if len(engineerIDs) > 0 && !wanted[*c.AssignedEngineerID] {
			continue
		}
		if c.AssignedDate.Before(from.Time) || c.AssignedDate.After(to.Time) {
			continue
		}
		byDay := out[*c.AssignedEngineerID]
		if byDay == nil {
			byDay = make(map[string]int)
			out[*c.AssignedEngineerID] = byDay
		}
		byDay[c.AssignedDate.String()] += c.DurationHours()
	}
	return out, nil
}

// --- DirectoryRepository ---

func (f *fakeStore) SaveRegion(_ context.Context, region *domain.Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *region
	f.regions[region.ID] = &cp
	return nil
}

func (f *fakeStore) FindRegionByID(_ context.Context, id uuid.UUID) (*domain.Region, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regions[id]
	if !ok {
		return nil, fmt.Errorf("%w: region %s", domain.ErrNotFound, id)
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) ListRegions(_ context.Context) ([]*domain.Region, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Region
	for _, r := range f.regions {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) DeleteRegion(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.regions, id)
	return nil
}

func (f *fakeStore) SaveDataCenter(_ context.Context, dc *domain.DataCenter) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *dc
	f.dcs[dc.ID] = &cp
	return nil
}

func (f *fakeStore) FindDataCenterByID(_ context.Context, id uuid.UUID) (*domain.DataCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dc, ok := f.dcs[id]
	if !ok {
		return nil, fmt.Errorf("%w: data center %s", domain.ErrNotFound, id)
	}
	cp := *dc
	return &cp, nil
}

func (f *fakeStore) ListDataCenters(_ context.Context) ([]*domain.DataCenter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.DataCenter
	for _, dc := range f.dcs {
		cp := *dc
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) DeleteDataCenter(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dcs, id)
	return nil
}

func (f *fakeStore) SaveDistance(_ context.Context, entry *domain.DistanceEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.distances[entry.ID] = *entry
	return nil
}

func (f *fakeStore) ListDistances(_ context.Context) ([]domain.DistanceEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DistanceEntry
	for _, e := range f.distances {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) DeleteDistance(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.distances, id)
	return nil
}

// --- SessionRepository ---

func (f *fakeStore) SaveSession(_ context.Context, session *domain.PlanningSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *session
	cp.Assignments = append([]domain.SessionAssignment(nil), session.Assignments...)
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeStore) FindSessionByID(_ context.Context, id uuid.UUID) (*domain.PlanningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	cp := *s
	cp.Assignments = append([]domain.SessionAssignment(nil), s.Assignments...)
	return &cp, nil
}

func (f *fakeStore) ListSessions(_ context.Context, userID *uuid.UUID) ([]*domain.PlanningSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.PlanningSession
	for _, s := range f.sessions {
		if userID != nil && (s.UserID == nil || *s.UserID != *userID) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) ExpireStale(_ context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	var expired []uuid.UUID
	for _, s := range f.sessions {
		if s.Status == domain.SessionDraft && s.ExpiresAt.Before(now) {
			s.Status = domain.SessionExpired
			expired = append(expired, s.ID)
		}
	}
	return expired, nil
}

// engineerRepo, directoryRepo, sessionRepo adapt fakeStore's method names
// to the repository interfaces where they collide with WorkRepository.
type engineerRepo struct{ *fakeStore }

func (r engineerRepo) Save(ctx context.Context, eng *domain.Engineer) error {
	r.SaveEngineer(eng)
	return nil
}
func (r engineerRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Engineer, error) {
	return r.FindEngineerByID(ctx, id)
}
func (r engineerRepo) List(ctx context.Context) ([]*domain.Engineer, error) {
	return r.ListEngineers(ctx)
}
func (r engineerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteEngineer(ctx, id)
}

type sessionRepo struct{ *fakeStore }

func (r sessionRepo) Save(ctx context.Context, s *domain.PlanningSession) error {
	return r.SaveSession(ctx, s)
}
func (r sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.PlanningSession, error) {
	return r.FindSessionByID(ctx, id)
}
func (r sessionRepo) List(ctx context.Context, userID *uuid.UUID) ([]*domain.PlanningSession, error) {
	return r.ListSessions(ctx, userID)
}
func (r sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteSession(ctx, id)
}

// recordSink records emitted events for assertions.
type recordSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type     domain.EventType
	EntityID uuid.UUID
}

func (s *recordSink) Emit(_ context.Context, typ domain.EventType, entityID uuid.UUID, _ any, _ *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{Type: typ, EntityID: entityID})
}

func (s *recordSink) count(typ domain.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}
