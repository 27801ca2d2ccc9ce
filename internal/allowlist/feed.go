package allowlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
	"github.com/kindlight/protection-core/internal/pkg/httpretry"
	"github.com/kindlight/protection-core/internal/pkg/logger"
)

// AlarmSink receives degraded-protection events. Satisfied by the sealed
// audit log; there is intentionally no family-visible implementation.
type AlarmSink interface {
	RecordDegraded(ctx context.Context, action domain.AuditAction, metadata map[string]string) error
}

// Feed pulls the protected-resource list from its external source and
// swaps matcher snapshots.
type Feed struct {
	url       string
	client    httpretry.HTTPDoer
	matcher   *Matcher
	alarms    AlarmSink
	staleness time.Duration

	// lastSuccess is read by the health surface while the refresher
	// goroutine writes it.
	mu          sync.RWMutex
	lastSuccess time.Time
}

// NewFeed creates a feed refresher for the given matcher. A nil client
// gets a retrying default.
func NewFeed(feedURL string, client httpretry.HTTPDoer, matcher *Matcher, alarms AlarmSink, staleness time.Duration) *Feed {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 3)
	}
	return &Feed{
		url:       feedURL,
		client:    client,
		matcher:   matcher,
		alarms:    alarms,
		staleness: staleness,
	}
}

// Refresh pulls the feed once and replaces the matcher snapshot on
// success. An empty feed leaves the previous snapshot in place and raises
// a sealed alarm; protection is degraded, never disabled.
func (f *Feed) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return fmt.Errorf("allowlist feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.checkStale(ctx)
		return fmt.Errorf("allowlist feed pull: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		f.checkStale(ctx)
		return fmt.Errorf("allowlist feed pull: status %d", resp.StatusCode)
	}

	var entries []domain.ProtectedResourceEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		f.checkStale(ctx)
		return fmt.Errorf("allowlist feed decode: %w", err)
	}

	if len(entries) == 0 {
		f.alarm(ctx, domain.AuditAllowlistEmpty, map[string]string{
			"feed_url": f.url,
		})
		return ErrEmptyFeed
	}

	f.matcher.Replace(entries, time.Now())
	f.mu.Lock()
	f.lastSuccess = time.Now()
	f.mu.Unlock()
	logger.Info("allowlist refreshed", "entries", fmt.Sprintf("%d", len(entries)))
	return nil
}

// checkStale raises a sealed alarm when the last successful refresh is
// older than the staleness threshold.
func (f *Feed) checkStale(ctx context.Context) {
	last := f.lastRefreshed()
	if last.IsZero() || time.Since(last) <= f.staleness {
		return
	}
	f.alarm(ctx, domain.AuditAllowlistStale, map[string]string{
		"feed_url":     f.url,
		"last_success": last.UTC().Format(time.RFC3339),
	})
}

// Stale reports whether the feed is past its staleness threshold.
func (f *Feed) Stale() bool {
	last := f.lastRefreshed()
	return !last.IsZero() && time.Since(last) > f.staleness
}

func (f *Feed) lastRefreshed() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastSuccess
}

// Status bundles matcher and feed health for the API's health surface.
type Status struct {
	Matcher *Matcher
	Feed    *Feed
}

// Size returns the current snapshot's domain count.
func (s Status) Size() int { return s.Matcher.Size() }

// LoadedAt returns when the current snapshot was loaded.
func (s Status) LoadedAt() time.Time { return s.Matcher.LoadedAt() }

// Stale reports whether the feed is past its staleness threshold.
func (s Status) Stale() bool { return s.Feed.Stale() }

func (f *Feed) alarm(ctx context.Context, action domain.AuditAction, meta map[string]string) {
	if f.alarms == nil {
		return
	}
	if err := f.alarms.RecordDegraded(ctx, action, meta); err != nil {
		// The alarm channel itself failing is the one thing we do log,
		// redacted, so operators notice the sealed path is down.
		logger.Error("sealed alarm failed", "err", err.Error())
	}
}
