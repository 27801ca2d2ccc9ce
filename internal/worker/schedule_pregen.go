package worker

import (
	"context"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// pregenInterval is how often the pre-generation pass runs. Schedules
// are deterministic, so regenerating one that is already cached is
// harmless; the pass exists to keep the decision path off the salt and
// zone lookups.
const pregenInterval = 6 * time.Hour

// Generator is the slice of the scheduler the pregen loop drives.
type Generator interface {
	Generate(ctx context.Context, subjectID, date string) (domain.DailyGapSchedule, error)
	SweepCache()
}

// SubjectLister enumerates subjects to pre-generate for.
type SubjectLister interface {
	ListSubjectIDs(ctx context.Context) ([]string, error)
}

// SchedulePregen warms the schedule cache for today and tomorrow across
// all subjects.
type SchedulePregen struct {
	scheduler Generator
	subjects  SubjectLister
	now       func() time.Time
}

// NewSchedulePregen creates the pre-generation loop.
func NewSchedulePregen(scheduler Generator, subjects SubjectLister) *SchedulePregen {
	return &SchedulePregen{scheduler: scheduler, subjects: subjects, now: time.Now}
}

// Start begins pre-generating. It blocks until ctx is cancelled.
func (w *SchedulePregen) Start(ctx context.Context) {
	logger.Info("schedule pregen starting", "interval", pregenInterval.String())

	w.run(ctx)

	ticker := time.NewTicker(pregenInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("schedule pregen stopping")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *SchedulePregen) run(ctx context.Context) {
	w.scheduler.SweepCache()

	ids, err := w.subjects.ListSubjectIDs(ctx)
	if err != nil {
		logger.Error("listing subjects for pregen failed", "error", err)
		return
	}

	today := w.now().UTC().Format("2006-01-02")
	tomorrow := w.now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	generated := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		for _, date := range []string{today, tomorrow} {
			if _, err := w.scheduler.Generate(ctx, id, date); err != nil {
				logger.Warn("schedule pregen failed", "subject", id, "error", err)
				continue
			}
			generated++
		}
	}
	logger.Info("schedule pregen cycle complete", "subjects", len(ids), "schedules", generated)
}
