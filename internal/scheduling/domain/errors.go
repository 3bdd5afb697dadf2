package domain

import "errors"

// Error kinds surfaced by the scheduling core. The HTTP adapter maps these
// to status codes; everything else wraps them with context.
var (
	// ErrNotFound means an entity referenced by ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means an optimistic version mismatch or an invariant
	// violation detected at commit time.
	ErrConflict = errors.New("conflict")

	// ErrNoSlot means the scheduler could not find a feasible slot under
	// the given constraints.
	ErrNoSlot = errors.New("no feasible slot")

	// ErrInvalidState means the operation is not allowed in the entity's
	// current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput means a malformed request: unknown strategy name,
	// non-positive duration, support work without a target date.
	ErrInvalidInput = errors.New("invalid input")
)
