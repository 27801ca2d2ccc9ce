package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kindlight/protection-core/internal/store"
)

// SaltRepo manages per-subject schedule salts in the sealed store. The
// salt folds into the gap-schedule seed, so schedules cannot be
// reproduced from subject ID and date alone by anything outside the
// sealed boundary.
type SaltRepo struct{ db *sql.DB }

// NewSaltRepo creates a sealed-store salt repository.
func NewSaltRepo(s *store.Sealed) *SaltRepo { return &SaltRepo{db: s.SealedDB()} }

// Salt returns the subject's salt, creating one on first use. A lost
// creation race re-reads the winner's value, so every caller observes
// the same salt forever after.
func (r *SaltRepo) Salt(ctx context.Context, subjectID string) ([]byte, error) {
	salt, err := r.read(ctx, subjectID)
	if err == nil {
		return salt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read salt: %w", err)
	}

	fresh := make([]byte, 32)
	if _, err := rand.Read(fresh); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO subject_salts (subject_id, salt, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (subject_id) DO NOTHING
	`, subjectID, fresh); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}

	salt, err = r.read(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("re-read salt: %w", err)
	}
	return salt, nil
}

func (r *SaltRepo) read(ctx context.Context, subjectID string) ([]byte, error) {
	var salt []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT salt FROM subject_salts WHERE subject_id = $1`, subjectID,
	).Scan(&salt)
	return salt, err
}
