package blackout

import (
	"context"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
)

// Repository defines the sealed-store data access contract for blackouts.
// There is deliberately no delete: blackout history is append-only once
// terminal.
type Repository interface {
	// Create persists a new active blackout. Fails if the signal already
	// has one.
	Create(ctx context.Context, b *domain.SignalBlackout) error

	// GetBySignal returns the blackout for a signal, extensions included.
	// Returns ErrNotFound if none exists.
	GetBySignal(ctx context.Context, signalID string) (*domain.SignalBlackout, error)

	// TransitionStatus moves the blackout from one status to another.
	// Returns ErrConflict if the current status is not `from` (optimistic
	// concurrency guard under the per-signal lock).
	TransitionStatus(ctx context.Context, signalID string, from, to domain.BlackoutStatus) error

	// AppendExtension records an extension and the recomputed expiry in one
	// statement, guarded on active status. Returns ErrConflict if the
	// blackout is no longer active.
	AppendExtension(ctx context.Context, signalID string, ext domain.BlackoutExtension, newExpiresAt time.Time) error

	// ListExpiredActive returns active blackouts whose expiry has passed,
	// for the background sweep.
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]domain.SignalBlackout, error)

	// ActiveForSubject reports whether any active blackout covers the
	// subject at the given instant.
	ActiveForSubject(ctx context.Context, subjectID string, at time.Time) (bool, error)
}
