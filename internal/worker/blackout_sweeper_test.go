package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kindlight/protection-core/internal/domain"
)

type countingSweeper struct {
	cycles int
}

func (s *countingSweeper) Sweep(context.Context, int) (int, error) {
	s.cycles++
	return 1, nil
}

type toggleLock struct {
	available bool
	held      int
}

func (l *toggleLock) Acquire(context.Context) (bool, error) {
	if !l.available {
		return false, nil
	}
	l.held++
	return true, nil
}

func (l *toggleLock) Release(context.Context) error { return nil }

func TestBlackoutSweeper_SweepsUnderLock(t *testing.T) {
	svc := &countingSweeper{}
	lock := &toggleLock{available: true}
	w := NewBlackoutSweeper(svc, lock, time.Hour)

	w.sweep(context.Background())

	assert.Equal(t, 1, svc.cycles)
	assert.Equal(t, 1, lock.held)
}

func TestBlackoutSweeper_SkipsWhenLockHeldElsewhere(t *testing.T) {
	svc := &countingSweeper{}
	w := NewBlackoutSweeper(svc, &toggleLock{available: false}, time.Hour)

	w.sweep(context.Background())

	assert.Zero(t, svc.cycles)
}

type fixedScheduler struct {
	generated []string
}

func (s *fixedScheduler) Generate(_ context.Context, subjectID, date string) (domain.DailyGapSchedule, error) {
	s.generated = append(s.generated, subjectID+"@"+date)
	return domain.DailyGapSchedule{SubjectID: subjectID, Date: date}, nil
}

func (s *fixedScheduler) SweepCache() {}

type fixedSubjects struct{ ids []string }

func (s fixedSubjects) ListSubjectIDs(context.Context) ([]string, error) { return s.ids, nil }

func TestSchedulePregen_CoversTodayAndTomorrow(t *testing.T) {
	sched := &fixedScheduler{}
	w := NewSchedulePregen(sched, fixedSubjects{ids: []string{"child-42", "child-77"}})
	w.now = func() time.Time { return time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC) }

	w.run(context.Background())

	assert.ElementsMatch(t, []string{
		"child-42@2024-06-01", "child-42@2024-06-02",
		"child-77@2024-06-01", "child-77@2024-06-02",
	}, sched.generated)
}
