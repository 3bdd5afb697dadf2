package domain

import "github.com/google/uuid"

// ChunkConstraints is the derived, never-persisted record the UI uses to
// validate drag-and-drop without round trips ("traffic light"). It fixes
// the allowed regions, the feasible date window, pinned date/time for
// support works, and the chunk's graph neighbourhood.
type ChunkConstraints struct {
	ChunkID          uuid.UUID   `json:"chunk_id"`
	DurationHours    int         `json:"duration_hours"`
	DataCenterID     *uuid.UUID  `json:"data_center_id,omitempty"`
	AllowedRegionIDs []uuid.UUID `json:"allowed_region_ids,omitempty"`

	MinDate *Day `json:"min_date,omitempty"`
	MaxDate *Day `json:"max_date,omitempty"`

	FixedDate *Day `json:"fixed_date,omitempty"`
	FixedTime *int `json:"fixed_time,omitempty"`

	DependsOnChunkIDs []uuid.UUID `json:"depends_on_chunk_ids,omitempty"`
	SyncChunkIDs      []uuid.UUID `json:"sync_chunk_ids,omitempty"`
}
