package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/sealed"
	"github.com/kindlight/protection-core/internal/store"
)

// AuditRepo implements sealed.Repository against the sealed store. The
// table carries a unique (shard, seq) constraint and the application role
// holds INSERT and SELECT grants only.
type AuditRepo struct{ db *sql.DB }

// NewAuditRepo creates a sealed-store audit repository.
func NewAuditRepo(s *store.Sealed) *AuditRepo { return &AuditRepo{db: s.SealedDB()} }

func (r *AuditRepo) Insert(ctx context.Context, e *domain.SealedAuditEntry) error {
	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sealed_audit_entries
			(id, shard, seq, action, actor_id, recorded_at, subject_ref, metadata, integrity_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.Shard, e.Seq, e.Action, e.ActorID, e.Timestamp, e.SubjectRef, meta, e.IntegrityHash)
	if err != nil {
		if isUniqueViolation(err) {
			return sealed.ErrSeqConflict
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) Last(ctx context.Context, shard string) (*domain.SealedAuditEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, shard, seq, action, actor_id, recorded_at, subject_ref, metadata, integrity_hash
		FROM sealed_audit_entries
		WHERE shard = $1
		ORDER BY seq DESC
		LIMIT 1
	`, shard)

	e, err := scanAuditEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last audit entry: %w", err)
	}
	return e, nil
}

func (r *AuditRepo) ListShard(ctx context.Context, shard string, fromSeq int64, limit int) ([]domain.SealedAuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, shard, seq, action, actor_id, recorded_at, subject_ref, metadata, integrity_hash
		FROM sealed_audit_entries
		WHERE shard = $1 AND seq >= $2
		ORDER BY seq
		LIMIT $3
	`, shard, fromSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit shard: %w", err)
	}
	defer rows.Close()

	var out []domain.SealedAuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *AuditRepo) Query(ctx context.Context, f sealed.QueryFilter) ([]domain.SealedAuditEntry, error) {
	q := `
		SELECT id, shard, seq, action, actor_id, recorded_at, subject_ref, metadata, integrity_hash
		FROM sealed_audit_entries
		WHERE 1=1`
	var args []interface{}

	if f.Shard != "" {
		args = append(args, f.Shard)
		q += fmt.Sprintf(" AND shard = $%d", len(args))
	}
	if f.Action != "" {
		args = append(args, f.Action)
		q += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if f.ActorID != "" {
		args = append(args, f.ActorID)
		q += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		q += fmt.Sprintf(" AND recorded_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		q += fmt.Sprintf(" AND recorded_at < $%d", len(args))
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.SealedAuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditEntry(row rowScanner) (*domain.SealedAuditEntry, error) {
	var e domain.SealedAuditEntry
	var meta []byte
	if err := row.Scan(&e.ID, &e.Shard, &e.Seq, &e.Action, &e.ActorID, &e.Timestamp,
		&e.SubjectRef, &meta, &e.IntegrityHash); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
		}
	}
	return &e, nil
}
