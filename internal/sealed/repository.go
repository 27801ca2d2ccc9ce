package sealed

import (
	"context"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
)

// QueryFilter narrows a compliance read of the audit log.
type QueryFilter struct {
	Shard   string
	Action  domain.AuditAction
	ActorID string
	From    time.Time
	To      time.Time
	Limit   int
}

// Repository is the sealed-store contract for audit entries. It exposes
// insert and read operations only; the absence of update and delete is
// the point, not an omission.
type Repository interface {
	// Insert persists one entry. Returns ErrSeqConflict if another writer
	// already holds (shard, seq).
	Insert(ctx context.Context, e *domain.SealedAuditEntry) error

	// Last returns the highest-sequence entry in a shard, or nil if the
	// shard has no entries yet.
	Last(ctx context.Context, shard string) (*domain.SealedAuditEntry, error)

	// ListShard returns a shard's entries in sequence order starting at
	// fromSeq, up to limit rows.
	ListShard(ctx context.Context, shard string, fromSeq int64, limit int) ([]domain.SealedAuditEntry, error)

	// Query returns entries matching the filter, newest first.
	Query(ctx context.Context, f QueryFilter) ([]domain.SealedAuditEntry, error)
}
