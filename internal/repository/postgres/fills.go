package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kindlight/protection-core/internal/backfill"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/store"
)

// FillRepo implements backfill.FillStore against the sealed store.
type FillRepo struct{ db *sql.DB }

// NewFillRepo creates a sealed-store synthetic-fill repository.
func NewFillRepo(s *store.Sealed) *FillRepo { return &FillRepo{db: s.SealedDB()} }

func (r *FillRepo) Get(ctx context.Context, id string) (*domain.SyntheticFill, error) {
	var f domain.SyntheticFill
	var entryIDs []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject_id, gap_start, gap_end, entry_ids, status, created_at
		FROM synthetic_fills
		WHERE id = $1
	`, id).Scan(&f.ID, &f.SubjectID, &f.Start, &f.End, &entryIDs, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backfill.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fill: %w", err)
	}
	if len(entryIDs) > 0 {
		if err := json.Unmarshal(entryIDs, &f.EntryIDs); err != nil {
			return nil, fmt.Errorf("unmarshal fill entry ids: %w", err)
		}
	}
	return &f, nil
}

func (r *FillRepo) CreatePending(ctx context.Context, f *domain.SyntheticFill) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO synthetic_fills (id, subject_id, gap_start, gap_end, entry_ids, status, created_at)
		VALUES ($1, $2, $3, $4, '[]', $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, f.ID, f.SubjectID, f.Start, f.End, f.Status, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("create pending fill: %w", err)
	}
	return nil
}

func (r *FillRepo) MarkCommitted(ctx context.Context, id string, entryIDs []string) error {
	ids, err := json.Marshal(entryIDs)
	if err != nil {
		return fmt.Errorf("marshal fill entry ids: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE synthetic_fills SET status = 'committed', entry_ids = $2
		WHERE id = $1
	`, id, ids)
	if err != nil {
		return fmt.Errorf("mark fill committed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return backfill.ErrNotFound
	}
	return nil
}
