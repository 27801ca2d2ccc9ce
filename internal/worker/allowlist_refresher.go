package worker

import (
	"context"
	"time"

	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// Refresher is the slice of the allowlist feed the loop drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// AllowlistRefresher polls the protected-resource feed. Refresh failures
// are handled inside the feed (stale alarms, retained snapshot); the
// loop only keeps the cadence.
type AllowlistRefresher struct {
	feed     Refresher
	interval time.Duration
}

// NewAllowlistRefresher creates the refresh loop.
func NewAllowlistRefresher(feed Refresher, interval time.Duration) *AllowlistRefresher {
	return &AllowlistRefresher{feed: feed, interval: interval}
}

// Start begins polling. It blocks until ctx is cancelled.
func (w *AllowlistRefresher) Start(ctx context.Context) {
	logger.Info("allowlist refresher starting", "interval", w.interval.String())

	if err := w.feed.Refresh(ctx); err != nil {
		logger.Warn("initial allowlist refresh failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("allowlist refresher stopping")
			return
		case <-ticker.C:
			if err := w.feed.Refresh(ctx); err != nil {
				logger.Warn("allowlist refresh failed", "error", err)
			}
		}
	}
}
