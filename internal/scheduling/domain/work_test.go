package domain_test

import (
	"testing"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func chunkWithStatus(s domain.ChunkStatus) *domain.WorkChunk {
	return &domain.WorkChunk{ID: uuid.New(), Status: s}
}

func TestDeriveWorkStatus_InProgressWins(t *testing.T) {
	chunks := []*domain.WorkChunk{
		chunkWithStatus(domain.ChunkStatusCompleted),
		chunkWithStatus(domain.ChunkStatusInProgress),
		chunkWithStatus(domain.ChunkStatusCreated),
	}

	got := domain.DeriveWorkStatus(domain.WorkStatusReady, chunks)
	assert.Equal(t, domain.WorkStatusInProgress, got)
}

func TestDeriveWorkStatus_AllCompleted(t *testing.T) {
	chunks := []*domain.WorkChunk{
		chunkWithStatus(domain.ChunkStatusCompleted),
		chunkWithStatus(domain.ChunkStatusCompleted),
	}

	got := domain.DeriveWorkStatus(domain.WorkStatusAssigned, chunks)
	assert.Equal(t, domain.WorkStatusCompleted, got)
}

func TestDeriveWorkStatus_MixedActiveAndCreated(t *testing.T) {
	chunks := []*domain.WorkChunk{
		chunkWithStatus(domain.ChunkStatusPlanned),
		chunkWithStatus(domain.ChunkStatusCreated),
	}

	got := domain.DeriveWorkStatus(domain.WorkStatusReady, chunks)
	assert.Equal(t, domain.WorkStatusScheduling, got)
}

func TestDeriveWorkStatus_AllActive(t *testing.T) {
	chunks := []*domain.WorkChunk{
		chunkWithStatus(domain.ChunkStatusPlanned),
		chunkWithStatus(domain.ChunkStatusAssigned),
	}

	got := domain.DeriveWorkStatus(domain.WorkStatusReady, chunks)
	assert.Equal(t, domain.WorkStatusAssigned, got)
}

func TestDeriveWorkStatus_NoRuleMatches(t *testing.T) {
	chunks := []*domain.WorkChunk{
		chunkWithStatus(domain.ChunkStatusCreated),
	}

	got := domain.DeriveWorkStatus(domain.WorkStatusReady, chunks)
	assert.Equal(t, domain.WorkStatusReady, got)
}

func TestDeriveWorkStatus_NoChunks(t *testing.T) {
	got := domain.DeriveWorkStatus(domain.WorkStatusDraft, nil)
	assert.Equal(t, domain.WorkStatusDraft, got)
}

func TestChunkDurationHours(t *testing.T) {
	chunk := &domain.WorkChunk{
		Tasks: []domain.WorkTask{
			{EstimatedHours: 2, Quantity: 3},
			{EstimatedHours: 1, Quantity: 1},
		},
	}

	assert.Equal(t, 7, chunk.DurationHours())
}

func TestChunkDurationHours_NoTasks(t *testing.T) {
	chunk := &domain.WorkChunk{}
	assert.Equal(t, 0, chunk.DurationHours())
}

func TestChunkAssignAndClear(t *testing.T) {
	chunk := chunkWithStatus(domain.ChunkStatusCreated)
	engineerID := uuid.New()
	day, _ := domain.ParseDay("2026-03-02")

	chunk.Assign(engineerID, day, 9)

	assert.True(t, chunk.IsAssigned())
	assert.Equal(t, domain.ChunkStatusPlanned, chunk.Status)
	assert.Equal(t, engineerID, *chunk.AssignedEngineerID)
	assert.Equal(t, day, *chunk.AssignedDate)
	assert.Equal(t, 9, *chunk.AssignedStartHour)

	chunk.ClearAssignment()

	assert.False(t, chunk.IsAssigned())
	assert.Equal(t, domain.ChunkStatusCreated, chunk.Status)
	assert.Nil(t, chunk.AssignedEngineerID)
	assert.Nil(t, chunk.AssignedDate)
	assert.Nil(t, chunk.AssignedStartHour)
}

func TestChunkEffectiveDC(t *testing.T) {
	workDC := uuid.New()
	chunkDC := uuid.New()
	work := &domain.Work{DataCenterID: &workDC}

	chunk := &domain.WorkChunk{DataCenterID: &chunkDC}
	assert.Equal(t, &chunkDC, chunk.EffectiveDC(work))

	chunk = &domain.WorkChunk{}
	assert.Equal(t, &workDC, chunk.EffectiveDC(work))

	assert.Nil(t, chunk.EffectiveDC(&domain.Work{}))
}

func TestWorkDeadline(t *testing.T) {
	due, _ := domain.ParseDay("2026-04-01")
	target, _ := domain.ParseDay("2026-04-15")

	general := &domain.Work{Type: domain.WorkGeneral, DueDate: &due, TargetDate: &target}
	assert.Equal(t, &due, general.Deadline())

	support := &domain.Work{Type: domain.WorkSupport, DueDate: &due, TargetDate: &target}
	assert.Equal(t, &target, support.Deadline())
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, domain.PriorityCritical.Rank())
	assert.Equal(t, 1, domain.PriorityHigh.Rank())
	assert.Equal(t, 2, domain.PriorityMedium.Rank())
	assert.Equal(t, 3, domain.PriorityLow.Rank())
	assert.Equal(t, 2, domain.Priority("unknown").Rank())
}

func TestChunkStatusActive(t *testing.T) {
	assert.True(t, domain.ChunkStatusPlanned.Active())
	assert.True(t, domain.ChunkStatusAssigned.Active())
	assert.True(t, domain.ChunkStatusInProgress.Active())
	assert.False(t, domain.ChunkStatusCreated.Active())
	assert.False(t, domain.ChunkStatusCompleted.Active())
}
