package domain

// EventType names the entity-change notifications fanned out to sync
// subscribers. Each carries the changed entity's ID; FullSync tells
// clients to refetch everything.
type EventType string

const (
	EventWorkCreated EventType = "work_created"
	EventWorkUpdated EventType = "work_updated"
	EventWorkDeleted EventType = "work_deleted"

	EventChunkCreated EventType = "chunk_created"
	EventChunkUpdated EventType = "chunk_updated"
	EventChunkDeleted EventType = "chunk_deleted"

	// Planning transitions get their own types so calendar clients can
	// distinguish a tentative placement from a confirmed one.
	EventChunkPlanned  EventType = "chunk_planned"
	EventChunkAssigned EventType = "chunk_assigned"

	EventEngineerCreated EventType = "engineer_created"
	EventEngineerUpdated EventType = "engineer_updated"
	EventEngineerDeleted EventType = "engineer_deleted"

	EventSlotCreated EventType = "slot_created"
	EventSlotUpdated EventType = "slot_updated"
	EventSlotDeleted EventType = "slot_deleted"

	EventRegionCreated EventType = "region_created"
	EventRegionUpdated EventType = "region_updated"
	EventRegionDeleted EventType = "region_deleted"

	EventDataCenterCreated EventType = "datacenter_created"
	EventDataCenterUpdated EventType = "datacenter_updated"
	EventDataCenterDeleted EventType = "datacenter_deleted"

	EventSessionCreated   EventType = "session_created"
	EventSessionApplied   EventType = "session_applied"
	EventSessionCancelled EventType = "session_cancelled"
	EventSessionExpired   EventType = "session_expired"

	EventFullSync EventType = "full_sync"
)
