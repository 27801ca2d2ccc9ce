package worker

import (
	"context"
	"errors"
	"time"

	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// popTimeout is how long one blocking pop waits before the loop rechecks
// its context.
const popTimeout = 5 * time.Second

// Filler is the slice of the backfill engine the worker drives.
type Filler interface {
	FillGap(ctx context.Context, subjectID string, start, end time.Time) error
}

// BackfillWorker consumes the backfill queue. Failed jobs are retried
// with linear backoff up to the configured attempt limit, then parked on
// the dead queue for operator attention. Parking is safer than dropping:
// an unfilled gap is the observable artifact this whole pipeline exists
// to prevent.
type BackfillWorker struct {
	queue  *BackfillQueue
	engine Filler
	cfg    config.BackfillConfig
}

// NewBackfillWorker creates the queue consumer.
func NewBackfillWorker(queue *BackfillQueue, engine Filler, cfg config.BackfillConfig) *BackfillWorker {
	return &BackfillWorker{queue: queue, engine: engine, cfg: cfg}
}

// Start begins consuming. It blocks until ctx is cancelled.
func (w *BackfillWorker) Start(ctx context.Context) {
	logger.Info("backfill worker starting")

	for {
		if ctx.Err() != nil {
			logger.Info("backfill worker stopping")
			return
		}

		job, err := w.queue.pop(ctx, popTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			logger.Error("backfill pop failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(popTimeout):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, job)
	}
}

func (w *BackfillWorker) process(ctx context.Context, job *backfillJob) {
	err := w.engine.FillGap(ctx, job.SubjectID, job.Start, job.End)
	if err == nil {
		return
	}

	job.Attempts++
	logger.Error("backfill attempt failed",
		"subject", job.SubjectID, "attempt", job.Attempts, "error", err)

	if job.Attempts >= w.cfg.MaxRetries {
		if err := w.queue.push(ctx, backfillDeadKey, *job); err != nil {
			logger.Error("parking dead backfill job failed", "error", err)
		}
		return
	}

	backoff := time.Duration(job.Attempts) * w.cfg.RetryBackoff()
	select {
	case <-ctx.Done():
	case <-time.After(backoff):
	}
	if err := w.queue.push(ctx, backfillQueueKey, *job); err != nil {
		logger.Error("requeueing backfill job failed", "error", err)
	}
}
