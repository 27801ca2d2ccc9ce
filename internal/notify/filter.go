package notify

import (
	"context"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// BlackoutChecker reports whether an active blackout covers the subject.
type BlackoutChecker interface {
	ActiveForSubject(ctx context.Context, subjectID string) (bool, error)
}

// GuardianSource resolves the guardians attached to a subject's family.
type GuardianSource interface {
	GuardiansForSubject(ctx context.Context, subjectID string) ([]domain.Guardian, error)
}

// Filter decides which recipients a subject-related notification may
// still reach.
type Filter struct {
	blackouts BlackoutChecker
	guardians GuardianSource
}

// NewFilter creates a recipient filter.
func NewFilter(blackouts BlackoutChecker, guardians GuardianSource) *Filter {
	return &Filter{blackouts: blackouts, guardians: guardians}
}

// Recipients returns the candidates that may be notified about the
// subject right now. Outside a blackout the list passes through
// unchanged. During one, every guardian of the subject's family is
// removed. Failures resolve toward delivering nothing: an undelivered
// digest is recoverable, a leaked one is not.
func (f *Filter) Recipients(ctx context.Context, subjectID string, candidates []string) []string {
	active, err := f.blackouts.ActiveForSubject(ctx, subjectID)
	if err != nil {
		logger.Error("blackout check failed, dropping recipients", "subject", subjectID, "error", err)
		return nil
	}
	if !active {
		return candidates
	}

	guardians, err := f.guardians.GuardiansForSubject(ctx, subjectID)
	if err != nil {
		logger.Error("guardian lookup failed, dropping recipients", "subject", subjectID, "error", err)
		return nil
	}

	blocked := make(map[string]struct{}, len(guardians))
	for _, g := range guardians {
		blocked[g.ID] = struct{}{}
	}

	kept := candidates[:0:0]
	for _, r := range candidates {
		if _, ok := blocked[r]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}
