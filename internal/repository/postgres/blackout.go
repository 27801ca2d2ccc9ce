package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kindlight/protection-core/internal/blackout"
	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/store"
)

// BlackoutRepo implements blackout.Repository against the sealed store.
type BlackoutRepo struct{ db *sql.DB }

// NewBlackoutRepo creates a sealed-store blackout repository.
func NewBlackoutRepo(s *store.Sealed) *BlackoutRepo { return &BlackoutRepo{db: s.SealedDB()} }

func (r *BlackoutRepo) Create(ctx context.Context, b *domain.SignalBlackout) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signal_blackouts (id, subject_id, signal_id, started_at, expires_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.SubjectID, b.SignalID, b.StartedAt, b.ExpiresAt, b.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return blackout.ErrConflict
		}
		return fmt.Errorf("create blackout: %w", err)
	}
	return nil
}

func (r *BlackoutRepo) GetBySignal(ctx context.Context, signalID string) (*domain.SignalBlackout, error) {
	var b domain.SignalBlackout
	err := r.db.QueryRowContext(ctx, `
		SELECT id, subject_id, signal_id, started_at, expires_at, status
		FROM signal_blackouts
		WHERE signal_id = $1
	`, signalID).Scan(&b.ID, &b.SubjectID, &b.SignalID, &b.StartedAt, &b.ExpiresAt, &b.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, blackout.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blackout: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT extended_by, extended_at, additional_hours, reason
		FROM blackout_extensions
		WHERE blackout_id = $1
		ORDER BY extended_at
	`, b.ID)
	if err != nil {
		return nil, fmt.Errorf("get blackout extensions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ext domain.BlackoutExtension
		if err := rows.Scan(&ext.ExtendedBy, &ext.ExtendedAt, &ext.AdditionalHours, &ext.Reason); err != nil {
			return nil, fmt.Errorf("scan extension: %w", err)
		}
		b.Extensions = append(b.Extensions, ext)
	}
	return &b, rows.Err()
}

func (r *BlackoutRepo) TransitionStatus(ctx context.Context, signalID string, from, to domain.BlackoutStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE signal_blackouts SET status = $3, updated_at = NOW()
		WHERE signal_id = $1 AND status = $2
	`, signalID, from, to)
	if err != nil {
		return fmt.Errorf("transition blackout: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, err := r.GetBySignal(ctx, signalID); errors.Is(err, blackout.ErrNotFound) {
			return blackout.ErrNotFound
		}
		return blackout.ErrConflict
	}
	return nil
}

func (r *BlackoutRepo) AppendExtension(ctx context.Context, signalID string, ext domain.BlackoutExtension, newExpiresAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin extension tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE signal_blackouts SET expires_at = $2, updated_at = NOW()
		WHERE signal_id = $1 AND status = 'active'
	`, signalID, newExpiresAt)
	if err != nil {
		return fmt.Errorf("update blackout expiry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return blackout.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO blackout_extensions (blackout_id, extended_by, extended_at, additional_hours, reason)
		SELECT id, $2, $3, $4, $5 FROM signal_blackouts WHERE signal_id = $1
	`, signalID, ext.ExtendedBy, ext.ExtendedAt, ext.AdditionalHours, ext.Reason)
	if err != nil {
		return fmt.Errorf("insert extension: %w", err)
	}

	return tx.Commit()
}

func (r *BlackoutRepo) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]domain.SignalBlackout, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject_id, signal_id, started_at, expires_at, status
		FROM signal_blackouts
		WHERE status = 'active' AND expires_at <= $1
		ORDER BY expires_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired blackouts: %w", err)
	}
	defer rows.Close()

	var out []domain.SignalBlackout
	for rows.Next() {
		var b domain.SignalBlackout
		if err := rows.Scan(&b.ID, &b.SubjectID, &b.SignalID, &b.StartedAt, &b.ExpiresAt, &b.Status); err != nil {
			return nil, fmt.Errorf("scan blackout: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BlackoutRepo) ActiveForSubject(ctx context.Context, subjectID string, at time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM signal_blackouts
			WHERE subject_id = $1 AND status = 'active' AND started_at <= $2 AND expires_at > $2
		)
	`, subjectID, at).Scan(&exists)
	return exists, err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
