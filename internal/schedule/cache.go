package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kindlight/protection-core/internal/domain"
)

// Cache holds generated schedules for their day of validity. A small
// in-process map fronts Redis so the hot decision path normally touches no
// network at all. Entries expire after the TTL; nothing here is ever
// written to Postgres.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.RWMutex
	local map[string]cachedSchedule
}

type cachedSchedule struct {
	schedule  domain.DailyGapSchedule
	expiresAt time.Time
}

// NewCache creates a schedule cache. rdb may be nil for a process-local
// cache (single-instance deployments and tests).
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		rdb:   rdb,
		ttl:   ttl,
		local: make(map[string]cachedSchedule),
	}
}

func cacheKey(subjectID, date string) string {
	return fmt.Sprintf("gapsched:%s:%s", subjectID, date)
}

// Get returns the cached schedule for (subject, date) if present.
func (c *Cache) Get(ctx context.Context, subjectID, date string) (domain.DailyGapSchedule, bool) {
	key := cacheKey(subjectID, date)

	c.mu.RLock()
	entry, ok := c.local[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.schedule, true
	}

	if c.rdb == nil {
		return domain.DailyGapSchedule{}, false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return domain.DailyGapSchedule{}, false
	}
	var sched domain.DailyGapSchedule
	if err := json.Unmarshal(data, &sched); err != nil {
		return domain.DailyGapSchedule{}, false
	}

	c.mu.Lock()
	c.local[key] = cachedSchedule{schedule: sched, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return sched, true
}

// Set stores a schedule. Racing writers for the same (subject, date) hold
// identical schedules, so last-writer-wins is safe.
func (c *Cache) Set(ctx context.Context, sched domain.DailyGapSchedule) {
	key := cacheKey(sched.SubjectID, sched.Date)

	c.mu.Lock()
	c.local[key] = cachedSchedule{schedule: sched, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	if c.rdb != nil {
		if data, err := json.Marshal(sched); err == nil {
			c.rdb.Set(ctx, key, data, c.ttl)
		}
	}
}

// Sweep drops expired local entries. Called periodically by the worker;
// Redis entries expire on their own.
func (c *Cache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	for k, v := range c.local {
		if now.After(v.expiresAt) {
			delete(c.local, k)
		}
	}
	c.mu.Unlock()
}
