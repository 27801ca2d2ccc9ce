package blackout

import "errors"

// Sentinel errors for the blackout service layer.
var (
	ErrNotFound = errors.New("blackout not found")

	// ErrNotActive is returned when a transition requires an active
	// blackout (extend after expiry, for example).
	ErrNotActive = errors.New("blackout is not active")

	// ErrConflict means a competing transition won the race. Callers retry
	// with backoff; no partial state was applied.
	ErrConflict = errors.New("concurrent blackout transition")

	// ErrInvalidExtension is returned for extension increments outside the
	// fixed set.
	ErrInvalidExtension = errors.New("extension hours must be 24, 48, or 72")

	// ErrLockUnavailable means the per-signal lock could not be acquired.
	ErrLockUnavailable = errors.New("blackout is locked by another transition")
)
