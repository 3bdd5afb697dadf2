package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionTTL is how long a draft planning session stays applicable.
const SessionTTL = 30 * time.Minute

// StrategyName identifies one of the pluggable planning strategies.
// Legacy aliases map onto the canonical four on input.
type StrategyName string

const (
	StrategyBalanced StrategyName = "balanced"
	StrategyDense    StrategyName = "dense"
	StrategySLA      StrategyName = "sla"
	StrategyOptimal  StrategyName = "optimal"

	// Legacy aliases kept for older clients.
	StrategyFillFirst     StrategyName = "fill_first"     // = dense
	StrategyPriorityFirst StrategyName = "priority_first" // = sla
)

// Canonical resolves aliases to the canonical strategy name. The second
// return is false for unknown names.
func (s StrategyName) Canonical() (StrategyName, bool) {
	switch s {
	case StrategyBalanced, StrategyDense, StrategySLA, StrategyOptimal:
		return s, true
	case StrategyFillFirst:
		return StrategyDense, true
	case StrategyPriorityFirst:
		return StrategySLA, true
	default:
		return "", false
	}
}

// SessionStatus lifecycle of a planning session.
type SessionStatus string

const (
	SessionDraft     SessionStatus = "draft"
	SessionApplied   SessionStatus = "applied"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
)

// SessionAssignment is one proposed placement inside a planning session.
// It is a preview: nothing is written to chunks until the session is
// applied.
type SessionAssignment struct {
	ChunkID       uuid.UUID  `json:"chunk_id"`
	WorkID        uuid.UUID  `json:"work_id"`
	EngineerID    uuid.UUID  `json:"engineer_id"`
	EngineerName  string     `json:"engineer_name,omitempty"`
	Date          Day        `json:"date"`
	StartHour     int        `json:"start_time"`
	DurationHours int        `json:"duration_hours"`
	DataCenterID  *uuid.UUID `json:"dc_id,omitempty"`
	Priority      Priority   `json:"priority,omitempty"`
}

// SessionFailure records a chunk the session could not place.
type SessionFailure struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	WorkID  uuid.UUID `json:"work_id"`
	Reason  string    `json:"reason"`
}

// GroupStat aggregates placements per engineer or per data center.
type GroupStat struct {
	Chunks int `json:"chunks"`
	Hours  int `json:"hours"`
}

// SessionStats summarizes a computed session for the preview UI.
type SessionStats struct {
	TotalChunks int                  `json:"total_chunks"`
	Assigned    int                  `json:"assigned"`
	Failed      int                  `json:"failed"`
	Failures    []SessionFailure     `json:"failed_details,omitempty"`
	ByEngineer  map[string]GroupStat `json:"by_engineer,omitempty"`
	ByDC        map[string]GroupStat `json:"by_dc,omitempty"`
	ByPriority  map[string]int       `json:"by_priority,omitempty"`
}

// PlanningSession is a reversible batch of proposed assignments: draft
// until applied or cancelled, expired after its TTL passes unapplied.
type PlanningSession struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	Strategy    StrategyName
	Status      SessionStatus
	Assignments []SessionAssignment
	Stats       SessionStats
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPlanningSession creates a draft session with the default TTL.
func NewPlanningSession(strategy StrategyName, userID *uuid.UUID) *PlanningSession {
	now := time.Now().UTC()
	return &PlanningSession{
		ID:        uuid.New(),
		UserID:    userID,
		Strategy:  strategy,
		Status:    SessionDraft,
		ExpiresAt: now.Add(SessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Deletable reports whether the session may be removed: applied sessions
// must be cancelled first so their assignments can be reverted.
func (s *PlanningSession) Deletable() bool {
	return s.Status != SessionApplied
}
