package domain

import "time"

// AuditAction names a protection-core action recorded in the sealed log.
type AuditAction string

const (
	AuditBlackoutOpened    AuditAction = "blackout.opened"
	AuditBlackoutExtended  AuditAction = "blackout.extended"
	AuditBlackoutReleased  AuditAction = "blackout.released"
	AuditBlackoutExpired   AuditAction = "blackout.expired"
	AuditBackfillCommitted AuditAction = "backfill.committed"
	AuditAllowlistStale    AuditAction = "allowlist.stale"
	AuditAllowlistEmpty    AuditAction = "allowlist.empty"
	AuditAuthRejected      AuditAction = "auth.rejected"
	AuditArchiveExported   AuditAction = "archive.exported"
)

// SealedAuditEntry is one append-only record in the sealed audit log.
// IntegrityHash chains each entry to its predecessor: it is the SHA-256 of
// the previous entry's hash concatenated with this entry's canonical
// serialization. The storage contract exposes no update or delete.
type SealedAuditEntry struct {
	ID            string            `json:"id" db:"id"`
	Shard         string            `json:"shard" db:"shard"`
	Seq           int64             `json:"seq" db:"seq"`
	Action        AuditAction       `json:"action" db:"action"`
	ActorID       string            `json:"actor_id" db:"actor_id"`
	Timestamp     time.Time         `json:"timestamp" db:"recorded_at"`
	SubjectRef    string            `json:"subject_ref" db:"subject_ref"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	IntegrityHash string            `json:"integrity_hash" db:"integrity_hash"`
}

// SyntheticFillStatus tracks the two-phase commit of a backfill run.
type SyntheticFillStatus string

const (
	FillPending   SyntheticFillStatus = "pending"
	FillCommitted SyntheticFillStatus = "committed"
)

// SyntheticFill is the sealed companion record for one backfilled interval.
// It is the only place the synthetic marker exists; the produced activity
// entries themselves are indistinguishable from captured ones.
type SyntheticFill struct {
	ID        string              `json:"id" db:"id"`
	SubjectID string              `json:"subject_id" db:"subject_id"`
	Start     time.Time           `json:"start" db:"gap_start"`
	End       time.Time           `json:"end" db:"gap_end"`
	EntryIDs  []string            `json:"entry_ids"`
	Status    SyntheticFillStatus `json:"status" db:"status"`
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
}
