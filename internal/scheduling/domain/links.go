package domain

import (
	"time"

	"github.com/google/uuid"
)

// LinkType describes how two chunks of a work relate.
type LinkType string

const (
	// LinkSync requires both chunks to be assigned to the same date.
	// The relation is treated as symmetric.
	LinkSync LinkType = "sync"
	// LinkDependency is finish-to-start at day granularity: the owning
	// chunk may start only strictly after the linked chunk's date.
	LinkDependency LinkType = "dependency"
)

// ChunkLink is a directed edge between two chunks. Edges are stored
// separately from chunks; the graph is keyed by chunk ID.
type ChunkLink struct {
	ID            uuid.UUID
	ChunkID       uuid.UUID
	LinkedChunkID uuid.UUID
	Type          LinkType
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DependencyInfo is what the dependency resolver yields for one chunk.
type DependencyInfo struct {
	// DependsOnIDs are the chunks that must finish strictly before this
	// one starts.
	DependsOnIDs []uuid.UUID
	// SyncIDs are the peers that must share this chunk's date, from both
	// outgoing and incoming sync edges.
	SyncIDs []uuid.UUID
	// EarliestAfter is the day after the latest assigned predecessor,
	// nil when no predecessor is assigned.
	EarliestAfter *Day
	// SyncPinned is the date any assigned sync peer sits on; peers are
	// invariantly on the same date so any one of them decides.
	SyncPinned *Day
}
