package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
)

// Service is the planning façade: suggest a slot for one chunk, assign
// one chunk or a whole work, and run reversible planning sessions over
// the entire backlog. Every public operation builds its own Run, so
// concurrent calls never observe each other's virtual assignments.
type Service struct {
	works     domain.WorkRepository
	engineers domain.EngineerRepository
	directory domain.DirectoryRepository
	sessions  domain.SessionRepository
	events    EventSink
	notifier  Notifier
	logger    *slog.Logger
}

// NewService wires a planning service. Nil events, notifier and logger
// fall back to no-ops.
func NewService(
	works domain.WorkRepository,
	engineers domain.EngineerRepository,
	directory domain.DirectoryRepository,
	sessions domain.SessionRepository,
	events EventSink,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if events == nil {
		events = NopSink{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		works:     works,
		engineers: engineers,
		directory: directory,
		sessions:  sessions,
		events:    events,
		notifier:  notifier,
		logger:    logger,
	}
}

func (s *Service) newRun() *Run {
	return NewRun(s.works, s.engineers, s.directory)
}

func (s *Service) constraints() *ConstraintService {
	return NewConstraintService(s.works, s.directory)
}

// SuggestSlot proposes a slot for one chunk without persisting anything.
// Uses the balanced strategy; returns ErrNoSlot when nothing fits.
func (s *Service) SuggestSlot(ctx context.Context, chunkID uuid.UUID, preferred *uuid.UUID) (*domain.SlotSuggestion, error) {
	run := s.newRun()
	if err := run.LoadGlobal(ctx); err != nil {
		return nil, err
	}

	chunk, work, err := s.loadChunkWithWork(ctx, chunkID)
	if err != nil {
		return nil, err
	}

	strategy, _ := NewStrategy(domain.StrategyBalanced)
	slot, err := s.findSlot(ctx, run, strategy, chunk, work, preferred)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: no suitable slot for chunk %s", domain.ErrNoSlot, chunkID)
	}
	return slot, nil
}

// WorkConstraints derives the scheduling constraints of every chunk of
// one work, keyed by chunk ID. Calendar clients validate a drag target
// against these before calling the scheduling endpoints.
func (s *Service) WorkConstraints(ctx context.Context, work *domain.Work) (map[uuid.UUID]*domain.ChunkConstraints, error) {
	return s.constraints().ForWork(ctx, work)
}

// AssignChunk suggests and immediately persists an assignment for one
// chunk, then recomputes the owning work's status.
func (s *Service) AssignChunk(ctx context.Context, chunkID uuid.UUID, actorID *uuid.UUID) (*domain.SlotSuggestion, error) {
	run := s.newRun()
	if err := run.LoadGlobal(ctx); err != nil {
		return nil, err
	}

	chunk, work, err := s.loadChunkWithWork(ctx, chunkID)
	if err != nil {
		return nil, err
	}

	strategy, _ := NewStrategy(domain.StrategyBalanced)
	slot, err := s.findSlot(ctx, run, strategy, chunk, work, nil)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: no suitable slot for chunk %s", domain.ErrNoSlot, chunkID)
	}

	if err := s.works.AssignChunk(ctx, chunk.ID, chunk.Version, slot.EngineerID, slot.Date, slot.StartHour, run.TravelHours); err != nil {
		return nil, err
	}

	if err := s.refreshWorkStatus(ctx, work.ID, actorID); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, domain.EventChunkPlanned, chunk.ID, slot, actorID)
	s.notifyAssignment(ctx, slot, work)
	return slot, nil
}

// UnassignChunk clears the chunk's assignment triple. Idempotent:
// chunks that are not planned or assigned are left untouched.
func (s *Service) UnassignChunk(ctx context.Context, chunkID uuid.UUID, actorID *uuid.UUID) error {
	chunk, err := s.works.FindChunkByID(ctx, chunkID)
	if err != nil {
		return err
	}
	if chunk.Status != domain.ChunkStatusPlanned && chunk.Status != domain.ChunkStatusAssigned {
		return nil
	}

	if err := s.works.ClearChunkAssignment(ctx, chunkID); err != nil {
		return err
	}
	if err := s.refreshWorkStatus(ctx, chunk.WorkID, actorID); err != nil {
		return err
	}
	s.events.Emit(ctx, domain.EventChunkUpdated, chunkID, nil, actorID)
	return nil
}

// AssignAllChunks places every created chunk of one work in the chosen
// strategy's queue order. Failures are collected per chunk; the rest of
// the batch proceeds.
func (s *Service) AssignAllChunks(ctx context.Context, workID uuid.UUID, strategyName domain.StrategyName, actorID *uuid.UUID) (*domain.SchedulingResult, error) {
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		return nil, err
	}

	strategy, err := NewStrategy(strategyName)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, strategyName)
	}

	run := s.newRun()
	if err := run.LoadGlobal(ctx); err != nil {
		return nil, err
	}

	chunks, err := s.works.FindChunksByWork(ctx, workID)
	if err != nil {
		return nil, err
	}

	var queue []domain.ChunkWithWork
	for _, chunk := range chunks {
		if chunk.Status == domain.ChunkStatusCreated {
			queue = append(queue, domain.ChunkWithWork{Chunk: chunk, Work: work})
		}
	}
	if len(queue) == 0 {
		return &domain.SchedulingResult{Success: true, Message: "no chunks to assign"}, nil
	}
	queue = strategy.SortQueue(queue)

	result := &domain.SchedulingResult{}
	for _, item := range queue {
		preferred, err := s.preferredEngineer(ctx, work.ID, run.virtual)
		if err != nil {
			return nil, err
		}

		slot, err := s.findSlot(ctx, run, strategy, item.Chunk, item.Work, preferred)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			result.Errors = append(result.Errors, fmt.Sprintf("no slot for chunk %q", item.Chunk.Title))
			continue
		}

		if err := s.works.AssignChunk(ctx, item.Chunk.ID, item.Chunk.Version, slot.EngineerID, slot.Date, slot.StartHour, run.TravelHours); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				result.Errors = append(result.Errors, fmt.Sprintf("conflict assigning chunk %q", item.Chunk.Title))
				continue
			}
			return nil, err
		}

		result.AssignedCount++
		run.AddVirtual(s.virtualOf(item.Chunk.ID, work.ID, slot))
		s.events.Emit(ctx, domain.EventChunkPlanned, item.Chunk.ID, slot, actorID)
		s.notifyAssignment(ctx, slot, work)
	}

	if result.AssignedCount > 0 {
		if err := s.refreshWorkStatus(ctx, work.ID, actorID); err != nil {
			return nil, err
		}
	}

	result.Success = len(result.Errors) == 0
	result.Message = fmt.Sprintf("assigned %d chunks", result.AssignedCount)
	return result, nil
}

// CreateSession plans the whole backlog of created chunks into a draft
// session. Nothing is persisted to chunks; the proposals live in the
// session until it is applied.
func (s *Service) CreateSession(ctx context.Context, strategyName domain.StrategyName, userID *uuid.UUID) (*domain.PlanningSession, error) {
	strategy, err := NewStrategy(strategyName)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, strategyName)
	}

	run := s.newRun()
	if err := run.LoadGlobal(ctx); err != nil {
		return nil, err
	}

	backlog, err := s.works.UnassignedChunks(ctx, nil)
	if err != nil {
		return nil, err
	}
	queue := strategy.SortQueue(backlog)

	session := domain.NewPlanningSession(strategy.Name(), userID)

	for _, item := range queue {
		preferred, err := s.preferredEngineer(ctx, item.Work.ID, run.virtual)
		if err != nil {
			return nil, err
		}

		slot, err := s.findSlot(ctx, run, strategy, item.Chunk, item.Work, preferred)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			session.Stats.Failures = append(session.Stats.Failures, domain.SessionFailure{
				ChunkID: item.Chunk.ID,
				WorkID:  item.Work.ID,
				Reason:  "no slot",
			})
			continue
		}

		assignment := s.virtualOf(item.Chunk.ID, item.Work.ID, slot)
		session.Assignments = append(session.Assignments, assignment)
		run.AddVirtual(assignment)
	}

	s.fillStats(session, len(queue))

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.events.Emit(ctx, domain.EventSessionCreated, session.ID, session.Stats, userID)
	s.logger.Info("planning session created",
		"session_id", session.ID,
		"strategy", session.Strategy,
		"assigned", session.Stats.Assigned,
		"failed", session.Stats.Failed,
	)
	return session, nil
}

// ApplySession persists a draft session's proposals in one transaction.
// Chunks mutated since the session was computed are skipped silently.
func (s *Service) ApplySession(ctx context.Context, sessionID uuid.UUID, actorID *uuid.UUID) (int, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status != domain.SessionDraft {
		return 0, fmt.Errorf("%w: session %s is %s", domain.ErrInvalidState, sessionID, session.Status)
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		session.Status = domain.SessionExpired
		if err := s.sessions.Save(ctx, session); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%w: session %s expired", domain.ErrInvalidState, sessionID)
	}

	run := s.newRun()
	if err := run.LoadGlobal(ctx); err != nil {
		return 0, err
	}

	writes := make([]domain.ChunkAssignmentWrite, 0, len(session.Assignments))
	for _, a := range session.Assignments {
		writes = append(writes, domain.ChunkAssignmentWrite{
			ChunkID:    a.ChunkID,
			EngineerID: a.EngineerID,
			Date:       a.Date,
			StartHour:  a.StartHour,
		})
	}

	appliedIDs, err := s.works.AssignChunks(ctx, writes, run.TravelHours)
	if err != nil {
		return 0, err
	}
	applied := make(map[uuid.UUID]bool, len(appliedIDs))
	for _, id := range appliedIDs {
		applied[id] = true
	}

	session.Status = domain.SessionApplied
	if err := s.sessions.Save(ctx, session); err != nil {
		return 0, err
	}

	workIDs := make(map[uuid.UUID]bool)
	for _, a := range session.Assignments {
		if !applied[a.ChunkID] {
			continue
		}
		workIDs[a.WorkID] = true
		s.events.Emit(ctx, domain.EventChunkPlanned, a.ChunkID, a, actorID)
	}
	for workID := range workIDs {
		if err := s.refreshWorkStatus(ctx, workID, actorID); err != nil {
			return 0, err
		}
	}

	s.events.Emit(ctx, domain.EventSessionApplied, session.ID, nil, actorID)
	return len(appliedIDs), nil
}

// CancelSession cancels a session. For applied sessions every chunk that
// still carries the session's exact assignment is reverted to created;
// chunks mutated since keep their independent state.
func (s *Service) CancelSession(ctx context.Context, sessionID uuid.UUID, actorID *uuid.UUID) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if session.Status == domain.SessionApplied {
		workIDs := make(map[uuid.UUID]bool)
		for _, a := range session.Assignments {
			chunk, err := s.works.FindChunkByID(ctx, a.ChunkID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return err
			}
			if !s.assignmentMatches(chunk, a) {
				continue
			}
			if err := s.works.ClearChunkAssignment(ctx, a.ChunkID); err != nil {
				return err
			}
			workIDs[a.WorkID] = true
			s.events.Emit(ctx, domain.EventChunkUpdated, a.ChunkID, nil, actorID)
		}
		for workID := range workIDs {
			if err := s.refreshWorkStatus(ctx, workID, actorID); err != nil {
				return err
			}
		}
	}

	session.Status = domain.SessionCancelled
	if err := s.sessions.Save(ctx, session); err != nil {
		return err
	}
	s.events.Emit(ctx, domain.EventSessionCancelled, session.ID, nil, actorID)
	return nil
}

// GetSession loads one session.
func (s *Service) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.PlanningSession, error) {
	return s.sessions.FindByID(ctx, sessionID)
}

// ListSessions lists sessions, optionally restricted to one user.
func (s *Service) ListSessions(ctx context.Context, userID *uuid.UUID) ([]*domain.PlanningSession, error) {
	return s.sessions.List(ctx, userID)
}

// DeleteSession removes a session. Applied sessions must be cancelled
// first so their assignments can be reverted.
func (s *Service) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Deletable() {
		return fmt.Errorf("%w: cannot delete applied session %s", domain.ErrInvalidState, sessionID)
	}
	return s.sessions.Delete(ctx, sessionID)
}

// ExpireSessions transitions stale drafts to expired. Nothing was
// applied, so there is nothing to roll back.
func (s *Service) ExpireSessions(ctx context.Context) error {
	ids, err := s.sessions.ExpireStale(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.events.Emit(ctx, domain.EventSessionExpired, id, nil, nil)
	}
	if len(ids) > 0 {
		s.logger.Info("planning sessions expired", "count", len(ids))
	}
	return nil
}

// ConfirmPlanned moves a batch of planned chunks to assigned.
func (s *Service) ConfirmPlanned(ctx context.Context, chunkIDs []uuid.UUID, actorID *uuid.UUID) (*domain.SchedulingResult, error) {
	result := &domain.SchedulingResult{}
	workIDs := make(map[uuid.UUID]bool)

	for _, chunkID := range chunkIDs {
		chunk, err := s.works.FindChunkByID(ctx, chunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				result.Errors = append(result.Errors, fmt.Sprintf("chunk %s not found", chunkID))
				continue
			}
			return nil, err
		}
		if chunk.Status != domain.ChunkStatusPlanned {
			continue
		}
		chunk.Status = domain.ChunkStatusAssigned
		if err := s.works.SaveChunk(ctx, chunk); err != nil {
			return nil, err
		}
		result.AssignedCount++
		workIDs[chunk.WorkID] = true
		s.events.Emit(ctx, domain.EventChunkAssigned, chunk.ID, nil, actorID)
	}

	for workID := range workIDs {
		if err := s.refreshWorkStatus(ctx, workID, actorID); err != nil {
			return nil, err
		}
	}

	result.Success = len(result.Errors) == 0
	result.Message = fmt.Sprintf("confirmed %d chunks", result.AssignedCount)
	return result, nil
}

// CancelAllChunks reverts every planned or assigned chunk of one work to
// created.
func (s *Service) CancelAllChunks(ctx context.Context, workID uuid.UUID, actorID *uuid.UUID) (*domain.SchedulingResult, error) {
	if _, err := s.works.FindByID(ctx, workID); err != nil {
		return nil, err
	}

	chunks, err := s.works.FindChunksByWork(ctx, workID)
	if err != nil {
		return nil, err
	}

	result := &domain.SchedulingResult{}
	for _, chunk := range chunks {
		if chunk.Status != domain.ChunkStatusPlanned && chunk.Status != domain.ChunkStatusAssigned {
			continue
		}
		if err := s.works.ClearChunkAssignment(ctx, chunk.ID); err != nil {
			return nil, err
		}
		result.AssignedCount++
		s.events.Emit(ctx, domain.EventChunkUpdated, chunk.ID, nil, actorID)
	}

	if result.AssignedCount > 0 {
		if err := s.refreshWorkStatus(ctx, workID, actorID); err != nil {
			return nil, err
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("cancelled %d chunks", result.AssignedCount)
	return result, nil
}

// findSlot runs the whole pipeline for one chunk: date window, candidate
// roster, per-engineer sweep, strategy selection. A supplied preferred
// engineer short-circuits the roster when they have any feasible slot.
func (s *Service) findSlot(
	ctx context.Context,
	run *Run,
	strategy Strategy,
	chunk *domain.WorkChunk,
	work *domain.Work,
	preferred *uuid.UUID,
) (*domain.SlotSuggestion, error) {
	from, to, err := s.constraints().DateWindow(ctx, chunk, work, run.virtual)
	if err != nil {
		return nil, err
	}
	if to.Before(from.Time) {
		return nil, nil
	}

	targetDC := chunk.EffectiveDC(work)
	engineers, err := run.CandidateEngineers(ctx, targetDC, preferred)
	if err != nil {
		return nil, err
	}
	engineers, err = strategy.FilterEngineers(ctx, run, engineers, targetDC, from, to)
	if err != nil {
		return nil, err
	}
	if len(engineers) == 0 {
		return nil, nil
	}

	engine := NewSlotEngine(run)
	var candidates []domain.SlotSuggestion
	for _, eng := range engineers {
		slots, err := engine.FindAvailableSlots(ctx, eng, chunk, work, from, to)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, slots...)

		// Keep work with the engineer already on this work when possible.
		if preferred != nil && eng.ID == *preferred && len(slots) > 0 {
			break
		}
	}

	return strategy.SelectBest(ctx, run, candidates)
}

// preferredEngineer is the engineer already attached to any chunk of the
// work: first from this run's virtual assignments, then from persisted
// chunks.
func (s *Service) preferredEngineer(ctx context.Context, workID uuid.UUID, virtual []domain.SessionAssignment) (*uuid.UUID, error) {
	for _, a := range virtual {
		if a.WorkID == workID {
			id := a.EngineerID
			return &id, nil
		}
	}

	chunks, err := s.works.FindChunksByWork(ctx, workID)
	if err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if chunk.AssignedEngineerID != nil {
			id := *chunk.AssignedEngineerID
			return &id, nil
		}
	}
	return nil, nil
}

func (s *Service) loadChunkWithWork(ctx context.Context, chunkID uuid.UUID) (*domain.WorkChunk, *domain.Work, error) {
	chunk, err := s.works.FindChunkByID(ctx, chunkID)
	if err != nil {
		return nil, nil, err
	}
	work, err := s.works.FindByID(ctx, chunk.WorkID)
	if err != nil {
		return nil, nil, err
	}
	return chunk, work, nil
}

// refreshWorkStatus recomputes the work's derived status from its chunks
// and persists it when it changed.
func (s *Service) refreshWorkStatus(ctx context.Context, workID uuid.UUID, actorID *uuid.UUID) error {
	work, err := s.works.FindByID(ctx, workID)
	if err != nil {
		return err
	}
	chunks, err := s.works.FindChunksByWork(ctx, workID)
	if err != nil {
		return err
	}

	derived := domain.DeriveWorkStatus(work.Status, chunks)
	if derived == work.Status {
		return nil
	}

	work.Status = derived
	if err := s.works.Save(ctx, work); err != nil {
		return err
	}
	s.events.Emit(ctx, domain.EventWorkUpdated, work.ID, map[string]any{"status": derived}, actorID)
	return nil
}

func (s *Service) virtualOf(chunkID, workID uuid.UUID, slot *domain.SlotSuggestion) domain.SessionAssignment {
	return domain.SessionAssignment{
		ChunkID:       chunkID,
		WorkID:        workID,
		EngineerID:    slot.EngineerID,
		EngineerName:  slot.EngineerName,
		Date:          slot.Date,
		StartHour:     slot.StartHour,
		DurationHours: slot.DurationHours,
		DataCenterID:  slot.DataCenterID,
		Priority:      slot.Priority,
	}
}

func (s *Service) assignmentMatches(chunk *domain.WorkChunk, a domain.SessionAssignment) bool {
	if chunk.Status != domain.ChunkStatusPlanned || !chunk.IsAssigned() {
		return false
	}
	return *chunk.AssignedEngineerID == a.EngineerID &&
		chunk.AssignedDate.Equal(a.Date.Time) &&
		*chunk.AssignedStartHour == a.StartHour
}

func (s *Service) fillStats(session *domain.PlanningSession, total int) {
	stats := &session.Stats
	stats.TotalChunks = total
	stats.Assigned = len(session.Assignments)
	stats.Failed = len(stats.Failures)
	stats.ByEngineer = make(map[string]domain.GroupStat)
	stats.ByDC = make(map[string]domain.GroupStat)
	stats.ByPriority = make(map[string]int)

	for _, a := range session.Assignments {
		eng := stats.ByEngineer[a.EngineerID.String()]
		eng.Chunks++
		eng.Hours += a.DurationHours
		stats.ByEngineer[a.EngineerID.String()] = eng

		if a.DataCenterID != nil {
			dc := stats.ByDC[a.DataCenterID.String()]
			dc.Chunks++
			dc.Hours += a.DurationHours
			stats.ByDC[a.DataCenterID.String()] = dc
		}

		if a.Priority != "" {
			stats.ByPriority[string(a.Priority)]++
		}
	}
}

func (s *Service) notifyAssignment(ctx context.Context, slot *domain.SlotSuggestion, work *domain.Work) {
	err := s.notifier.Send(ctx, "chunk_assigned", slot.EngineerID, map[string]any{
		"work":       work.Name,
		"date":       slot.Date.String(),
		"start_time": slot.StartHour,
		"dc_id":      slot.DataCenterID,
	})
	if err != nil {
		s.logger.Warn("assignment notification failed", "engineer_id", slot.EngineerID, "error", err)
	}
}
