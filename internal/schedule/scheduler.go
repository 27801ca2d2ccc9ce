package schedule

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/domain"
)

// maxPlacementRetries bounds rejection sampling per window.
const maxPlacementRetries = 100

// zoneTTL bounds how long a subject's timezone stays memoized. A subject
// moving between zones converges within the hour.
const zoneTTL = time.Hour

// SaltSource supplies the per-subject seed salt. The only implementation
// reads (and lazily creates) salts in the sealed store.
type SaltSource interface {
	Salt(ctx context.Context, subjectID string) ([]byte, error)
}

// ZoneSource resolves a subject's IANA timezone.
type ZoneSource interface {
	Zone(ctx context.Context, subjectID string) (*time.Location, error)
}

type zoneEntry struct {
	loc       *time.Location
	expiresAt time.Time
}

// Scheduler generates daily gap schedules and answers in-gap membership
// queries on the hot decision path. Timezone lookups are memoized per
// subject so a decision served from the schedule cache touches no store
// at all.
type Scheduler struct {
	cfg   config.ScheduleConfig
	salts SaltSource
	zones ZoneSource
	cache *Cache
	now   func() time.Time

	zmu       sync.RWMutex
	zoneCache map[string]zoneEntry
}

// NewScheduler creates a scheduler. cache may be nil, in which case every
// lookup regenerates (tests only; production always passes a cache).
func NewScheduler(cfg config.ScheduleConfig, salts SaltSource, zones ZoneSource, cache *Cache) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		salts:     salts,
		zones:     zones,
		cache:     cache,
		now:       time.Now,
		zoneCache: make(map[string]zoneEntry),
	}
}

// Generate produces the schedule for one subject and one calendar day.
// Identical inputs produce identical output for as long as the subject's
// salt is stable.
func (s *Scheduler) Generate(ctx context.Context, subjectID, date string) (domain.DailyGapSchedule, error) {
	salt, err := s.salts.Salt(ctx, subjectID)
	if err != nil {
		return domain.DailyGapSchedule{}, fmt.Errorf("schedule seed salt: %w", err)
	}

	rng := seededRNG(subjectID, date, salt)

	count := domain.MinGapsPerDay + rng.IntN(domain.MaxGapsPerDay-domain.MinGapsPerDay+1)
	spacing := s.cfg.MinSpacingMinutes

	var windows []domain.GapWindow
	for placed := 0; placed < count; placed++ {
		w, ok := s.placeWindow(rng, windows, spacing)
		if !ok {
			// Couldn't fit another window under the spacing constraint.
			// Keep what we have as long as the floor is met.
			break
		}
		windows = append(windows, w)
	}

	if len(windows) < domain.MinGapsPerDay {
		return domain.DailyGapSchedule{}, fmt.Errorf("schedule generation: placed %d windows, need %d", len(windows), domain.MinGapsPerDay)
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].StartMinute < windows[j].StartMinute
	})

	return domain.DailyGapSchedule{
		SubjectID: subjectID,
		Date:      date,
		Windows:   windows,
	}, nil
}

// placeWindow draws candidate windows until one satisfies the spacing
// constraint against everything already placed, or retries run out.
func (s *Scheduler) placeWindow(rng *rand.Rand, placed []domain.GapWindow, spacing int) (domain.GapWindow, bool) {
	span := s.cfg.WakingEndMinute - s.cfg.WakingStartMinute

	for try := 0; try < maxPlacementRetries; try++ {
		start := s.cfg.WakingStartMinute + rng.IntN(span)
		dur := domain.MinGapMinutes + rng.IntN(domain.MaxGapMinutes-domain.MinGapMinutes+1)
		w := domain.GapWindow{StartMinute: start % 1440, DurationMinutes: dur}

		if fits(w, placed, spacing) {
			return w, true
		}
	}
	return domain.GapWindow{}, false
}

// fits checks the candidate against every placed window: no overlap and at
// least spacing minutes between the end of one and the start of the other.
func fits(c domain.GapWindow, placed []domain.GapWindow, spacing int) bool {
	cStart, cEnd := c.StartMinute, c.StartMinute+c.DurationMinutes
	for _, p := range placed {
		pStart, pEnd := p.StartMinute, p.StartMinute+p.DurationMinutes
		// Distance between the two windows must be >= spacing. Overlap
		// makes the distance negative and fails the same check.
		if cEnd+spacing > pStart && pEnd+spacing > cStart {
			return false
		}
	}
	return true
}

// IsInGap reports whether the timestamp falls inside a privacy gap for the
// subject, in the subject's local time. Windows that wrap past midnight
// belong to the day they started, so the previous day's schedule is
// consulted for the early minutes of the day.
func (s *Scheduler) IsInGap(ctx context.Context, subjectID string, t time.Time) (bool, error) {
	loc, err := s.zoneFor(ctx, subjectID)
	if err != nil {
		return false, fmt.Errorf("subject timezone: %w", err)
	}
	local := t.In(loc)
	minute := local.Hour()*60 + local.Minute()

	today, err := s.scheduleFor(ctx, subjectID, local.Format("2006-01-02"))
	if err != nil {
		return false, err
	}
	if today.InGap(minute) {
		return true, nil
	}

	// Early minutes of the day may fall inside a window that started
	// yesterday and wrapped.
	if minute < domain.MaxGapMinutes {
		yesterday, err := s.scheduleFor(ctx, subjectID, local.AddDate(0, 0, -1).Format("2006-01-02"))
		if err != nil {
			return false, err
		}
		for _, w := range yesterday.Windows {
			if w.StartMinute+w.DurationMinutes > 1440 && w.Contains(minute) {
				return true, nil
			}
		}
	}

	return false, nil
}

// scheduleFor returns the cached schedule, generating and caching on miss.
// Last writer wins on a racing regeneration; both writers hold identical
// schedules, so the race is harmless.
func (s *Scheduler) scheduleFor(ctx context.Context, subjectID, date string) (domain.DailyGapSchedule, error) {
	if s.cache != nil {
		if sched, ok := s.cache.Get(ctx, subjectID, date); ok {
			return sched, nil
		}
	}

	sched, err := s.Generate(ctx, subjectID, date)
	if err != nil {
		return domain.DailyGapSchedule{}, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, sched)
	}
	return sched, nil
}

// zoneFor resolves the subject's timezone through a TTL memo so repeated
// decisions for the same subject do not hit the family store.
func (s *Scheduler) zoneFor(ctx context.Context, subjectID string) (*time.Location, error) {
	now := s.now()

	s.zmu.RLock()
	e, ok := s.zoneCache[subjectID]
	s.zmu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		return e.loc, nil
	}

	loc, err := s.zones.Zone(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	s.zmu.Lock()
	s.zoneCache[subjectID] = zoneEntry{loc: loc, expiresAt: now.Add(zoneTTL)}
	s.zmu.Unlock()
	return loc, nil
}

// SweepCache drops expired local cache entries.
func (s *Scheduler) SweepCache() {
	if s.cache != nil {
		s.cache.Sweep()
	}

	now := s.now()
	s.zmu.Lock()
	for k, v := range s.zoneCache {
		if now.After(v.expiresAt) {
			delete(s.zoneCache, k)
		}
	}
	s.zmu.Unlock()
}

// seededRNG builds the day's generator from HMAC-SHA-256 keyed by the
// sealed salt over subject | date. Without the salt the seed is not
// derivable from outside.
func seededRNG(subjectID, date string, salt []byte) *rand.Rand {
	h := hmac.New(sha256.New, salt)
	h.Write([]byte(subjectID))
	h.Write([]byte{'|'})
	h.Write([]byte(date))
	sum := h.Sum(nil)

	s1 := binary.LittleEndian.Uint64(sum[0:8])
	s2 := binary.LittleEndian.Uint64(sum[8:16])
	return rand.New(rand.NewPCG(s1, s2))
}
