package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/store"
)

// ErrSubjectNotFound is returned for unknown subject IDs.
var ErrSubjectNotFound = errors.New("subject not found")

// SubjectRepo reads subjects and guardians from the family store. It
// backs the scheduler's timezone lookup and the notification filter's
// guardian resolution.
type SubjectRepo struct{ db *sql.DB }

// NewSubjectRepo creates a family-store subject repository.
func NewSubjectRepo(f *store.Family) *SubjectRepo { return &SubjectRepo{db: f.FamilyDB()} }

// Zone returns the subject's IANA timezone as a location.
func (r *SubjectRepo) Zone(ctx context.Context, subjectID string) (*time.Location, error) {
	var tz string
	err := r.db.QueryRowContext(ctx,
		`SELECT timezone FROM subjects WHERE id = $1`, subjectID,
	).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subject timezone: %w", err)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("loading zone %q: %w", tz, err)
	}
	return loc, nil
}

// ListSubjectIDs returns every subject ID, for schedule pre-generation.
func (r *SubjectRepo) ListSubjectIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subject id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GuardiansForSubject returns the guardians in the subject's family.
func (r *SubjectRepo) GuardiansForSubject(ctx context.Context, subjectID string) ([]domain.Guardian, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT g.id, g.family_id
		FROM guardians g
		JOIN subjects s ON s.family_id = g.family_id
		WHERE s.id = $1
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("guardians for subject: %w", err)
	}
	defer rows.Close()

	var out []domain.Guardian
	for rows.Next() {
		var g domain.Guardian
		if err := rows.Scan(&g.ID, &g.FamilyID); err != nil {
			return nil, fmt.Errorf("scan guardian: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
