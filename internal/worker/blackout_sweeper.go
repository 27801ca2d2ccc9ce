package worker

import (
	"context"
	"time"

	"github.com/kindlight/protection-core/internal/pkg/distlock"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// sweepBatchSize caps one sweep cycle so a large backlog cannot hold the
// sweep lock for minutes.
const sweepBatchSize = 200

// Sweeper is the slice of the blackout service the sweep loop drives.
type Sweeper interface {
	Sweep(ctx context.Context, limit int) (int, error)
}

// BlackoutSweeper transitions naturally expired blackouts on a timer.
// The cross-instance lock keeps a fleet from sweeping concurrently;
// per-signal locks inside the service guard individual transitions.
type BlackoutSweeper struct {
	svc      Sweeper
	lock     distlock.DistLock
	interval time.Duration
}

// NewBlackoutSweeper creates the sweep loop.
func NewBlackoutSweeper(svc Sweeper, lock distlock.DistLock, interval time.Duration) *BlackoutSweeper {
	return &BlackoutSweeper{svc: svc, lock: lock, interval: interval}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (w *BlackoutSweeper) Start(ctx context.Context) {
	logger.Info("blackout sweeper starting", "interval", w.interval.String())

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("blackout sweeper stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *BlackoutSweeper) sweep(ctx context.Context) {
	acquired, err := w.lock.Acquire(ctx)
	if err != nil {
		logger.Error("sweep lock acquire failed", "error", err)
		return
	}
	if !acquired {
		logger.Debug("sweep lock held elsewhere, skipping cycle")
		return
	}
	defer w.lock.Release(ctx)

	n, err := w.svc.Sweep(ctx, sweepBatchSize)
	if err != nil {
		logger.Error("blackout sweep failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("blackout sweep cycle complete", "expired", n)
	}
}
