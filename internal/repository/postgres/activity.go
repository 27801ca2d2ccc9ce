package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/store"
)

// ActivityRepo implements the timeline surface over the family store.
// Backfill writes through the same insert the capture pipeline uses, so
// synthetic rows are structurally identical to captured ones.
type ActivityRepo struct{ db *sql.DB }

// NewActivityRepo creates a family-store activity repository.
func NewActivityRepo(f *store.Family) *ActivityRepo { return &ActivityRepo{db: f.FamilyDB()} }

func (r *ActivityRepo) History(ctx context.Context, subjectID string, from, to time.Time) ([]domain.ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, occurred_at, entry_type, metadata
		FROM activity_entries
		WHERE subject_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at
	`, subjectID, from, to)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Timestamp, &e.Type, &meta); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ActivityRepo) InsertEntries(ctx context.Context, entries []domain.ActivityEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activity_entries (id, subject_id, occurred_at, entry_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal entry metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.SubjectID, e.Timestamp, e.Type, meta); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	return tx.Commit()
}
