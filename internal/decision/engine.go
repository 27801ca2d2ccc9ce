package decision

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// ResourceMatcher reports whether a URL belongs to a protected resource.
// The in-memory allowlist matcher satisfies this.
type ResourceMatcher interface {
	IsProtected(rawURL string) bool
}

// GapChecker reports whether a timestamp falls inside the subject's
// scheduled privacy gaps.
type GapChecker interface {
	IsInGap(ctx context.Context, subjectID string, t time.Time) (bool, error)
}

// BlackoutChecker reports whether an active blackout covers the subject.
type BlackoutChecker interface {
	ActiveForSubject(ctx context.Context, subjectID string) (bool, error)
}

// Engine combines the three suppression sources into one boolean.
type Engine struct {
	matcher   ResourceMatcher
	gaps      GapChecker
	blackouts BlackoutChecker

	evaluations uint64
	suppressed  uint64
}

// NewEngine creates the suppression engine.
func NewEngine(matcher ResourceMatcher, gaps GapChecker, blackouts BlackoutChecker) *Engine {
	return &Engine{matcher: matcher, gaps: gaps, blackouts: blackouts}
}

// ShouldSuppress decides whether an activity observation must be dropped
// before capture. The three checks always all run; the results are only
// combined at the end. Errors from the gap or blackout lookups count as
// suppression and are logged without the URL or a usable subject handle.
func (e *Engine) ShouldSuppress(ctx context.Context, subjectID, rawURL string, at time.Time) bool {
	protected := e.matcher.IsProtected(rawURL)

	inGap, gapErr := e.gaps.IsInGap(ctx, subjectID, at)
	if gapErr != nil {
		logger.Error("gap check failed, suppressing", "subject", subjectID, "error", gapErr)
		inGap = true
	}

	inBlackout, boErr := e.blackouts.ActiveForSubject(ctx, subjectID)
	if boErr != nil {
		logger.Error("blackout check failed, suppressing", "subject", subjectID, "error", boErr)
		inBlackout = true
	}

	suppress := protected || inGap || inBlackout

	atomic.AddUint64(&e.evaluations, 1)
	if suppress {
		atomic.AddUint64(&e.suppressed, 1)
	}
	return suppress
}

// Stats returns aggregate evaluation counters. Totals only; nothing here
// breaks down suppressions by cause.
func (e *Engine) Stats() (evaluations, suppressed uint64) {
	return atomic.LoadUint64(&e.evaluations), atomic.LoadUint64(&e.suppressed)
}
