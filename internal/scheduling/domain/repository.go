package domain

import (
	"context"

	"github.com/google/uuid"
)

// WorkFilter narrows work listings. Zero values mean "no filter".
type WorkFilter struct {
	Statuses   []WorkStatus
	Types      []WorkType
	Priorities []Priority
	// AuthorID restricts to works created by one user (role-based listing).
	AuthorID *uuid.UUID
	// EngineerID restricts to works having a chunk assigned to the engineer.
	EngineerID *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

// ChunkAssignmentWrite is one assignment triple to persist.
type ChunkAssignmentWrite struct {
	ChunkID    uuid.UUID
	EngineerID uuid.UUID
	Date       Day
	StartHour  int
}

// WorkRepository persists works, chunks, tasks and chunk links.
type WorkRepository interface {
	// Save upserts and bumps the version. Updating with a version that no
	// longer matches the stored row returns ErrConflict; SaveChunk has
	// the same contract.
	Save(ctx context.Context, work *Work) error
	FindByID(ctx context.Context, id uuid.UUID) (*Work, error)
	List(ctx context.Context, filter WorkFilter) ([]*Work, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SaveChunk(ctx context.Context, chunk *WorkChunk) error
	FindChunkByID(ctx context.Context, id uuid.UUID) (*WorkChunk, error)
	FindChunksByWork(ctx context.Context, workID uuid.UUID) ([]*WorkChunk, error)
	DeleteChunk(ctx context.Context, id uuid.UUID) error

	// UnassignedChunks returns created chunks of active works joined with
	// their works, ordered by work then chunk order. The planner builds
	// its queue from this.
	UnassignedChunks(ctx context.Context, workIDs []uuid.UUID) ([]ChunkWithWork, error)

	// AssignChunk atomically writes the assignment triple, bumps the
	// chunk version (expecting expectedVersion) and re-validates the
	// travel-aware overlap invariant inside the same transaction.
	// Returns ErrConflict on a lost version race or a calendar collision.
	AssignChunk(ctx context.Context, chunkID uuid.UUID, expectedVersion int, engineerID uuid.UUID, date Day, startHour int, travel TravelFunc) error

	// AssignChunks applies a batch of assignment writes in one
	// transaction, sweeping chunks in the given order. Chunks no longer
	// in created status are skipped silently; any overlap violation
	// aborts the whole batch. Returns the IDs of chunks actually written.
	AssignChunks(ctx context.Context, writes []ChunkAssignmentWrite, travel TravelFunc) ([]uuid.UUID, error)

	// ClearChunkAssignment nulls the triple and resets the chunk to
	// created. Idempotent: clearing an unassigned chunk is a no-op.
	ClearChunkAssignment(ctx context.Context, chunkID uuid.UUID) error

	SaveTask(ctx context.Context, task *WorkTask) error
	FindTasksByWork(ctx context.Context, workID uuid.UUID) ([]*WorkTask, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error

	SaveLink(ctx context.Context, link *ChunkLink) error
	DeleteLink(ctx context.Context, id uuid.UUID) error
	// FindLinksByWork returns all edges between chunks of one work.
	FindLinksByWork(ctx context.Context, workID uuid.UUID) ([]*ChunkLink, error)
	// FindLinksByChunks returns edges touching any of the given chunks,
	// incoming or outgoing.
	FindLinksByChunks(ctx context.Context, chunkIDs []uuid.UUID) ([]*ChunkLink, error)
}

// EngineerRepository persists engineers and their per-date work windows.
type EngineerRepository interface {
	Save(ctx context.Context, eng *Engineer) error
	FindByID(ctx context.Context, id uuid.UUID) (*Engineer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Engineer, error)
	List(ctx context.Context) ([]*Engineer, error)
	ListByRegion(ctx context.Context, regionID uuid.UUID) ([]*Engineer, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SaveSlot(ctx context.Context, slot *TimeSlot) error
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	// SlotsInRange returns work windows for the engineers (all when empty)
	// between from and to inclusive.
	SlotsInRange(ctx context.Context, engineerIDs []uuid.UUID, from, to Day) ([]*TimeSlot, error)

	// OccupiedOn returns the busy intervals of one engineer-day from
	// active chunks, with each interval's data center for travel math.
	OccupiedOn(ctx context.Context, engineerID uuid.UUID, date Day) ([]OccupiedInterval, error)

	// AssignedHoursInRange sums active chunk hours per engineer per day,
	// keyed by engineer ID then ISO date.
	AssignedHoursInRange(ctx context.Context, engineerIDs []uuid.UUID, from, to Day) (map[uuid.UUID]map[string]int, error)
}

// DirectoryRepository persists the geography: regions, data centers and
// the travel-time matrix.
type DirectoryRepository interface {
	SaveRegion(ctx context.Context, region *Region) error
	FindRegionByID(ctx context.Context, id uuid.UUID) (*Region, error)
	ListRegions(ctx context.Context) ([]*Region, error)
	DeleteRegion(ctx context.Context, id uuid.UUID) error

	SaveDataCenter(ctx context.Context, dc *DataCenter) error
	FindDataCenterByID(ctx context.Context, id uuid.UUID) (*DataCenter, error)
	ListDataCenters(ctx context.Context) ([]*DataCenter, error)
	DeleteDataCenter(ctx context.Context, id uuid.UUID) error

	SaveDistance(ctx context.Context, entry *DistanceEntry) error
	ListDistances(ctx context.Context) ([]DistanceEntry, error)
	DeleteDistance(ctx context.Context, id uuid.UUID) error
}

// SessionRepository persists planning sessions with their assignment
// previews and stats.
type SessionRepository interface {
	Save(ctx context.Context, session *PlanningSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*PlanningSession, error)
	List(ctx context.Context, userID *uuid.UUID) ([]*PlanningSession, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ExpireStale marks draft sessions past their deadline as expired and
	// returns the IDs it touched.
	ExpireStale(ctx context.Context) ([]uuid.UUID, error)
}
