package allowlist

import (
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kindlight/protection-core/internal/domain"
)

// knownShorteners are always treated as protected. Redirect resolution is
// out of scope, so any of these may hide a crisis resource behind it.
var knownShorteners = []string{
	"bit.ly",
	"tinyurl.com",
	"t.co",
	"goo.gl",
	"ow.ly",
	"is.gd",
	"buff.ly",
	"rebrand.ly",
	"cutt.ly",
	"shorturl.at",
	"rb.gy",
	"tiny.cc",
}

// Matcher answers "is this URL a protected resource" with no I/O and no
// recoverable reason. Safe for concurrent use; the domain set is an
// immutable snapshot swapped atomically by the feed refresher.
type Matcher struct {
	mu      sync.RWMutex
	domains map[string]domain.ResourceCategory
	loaded  time.Time

	checks    atomic.Uint64
	protected atomic.Uint64
}

// NewMatcher creates a matcher seeded with the compiled-in shortener set.
func NewMatcher() *Matcher {
	m := &Matcher{}
	m.Replace(nil, time.Time{})
	return m
}

// Replace swaps in a new snapshot of feed entries. The shortener set is
// re-applied on every swap so a feed outage can never remove it.
func (m *Matcher) Replace(entries []domain.ProtectedResourceEntry, loadedAt time.Time) {
	domains := make(map[string]domain.ResourceCategory, len(entries)+len(knownShorteners))
	for _, e := range entries {
		d := normalizeHost(e.Domain)
		if d == "" {
			continue
		}
		domains[d] = e.Category
	}
	for _, s := range knownShorteners {
		domains[s] = domain.CategoryURLShortener
	}

	m.mu.Lock()
	m.domains = domains
	m.loaded = loadedAt
	m.mu.Unlock()
}

// IsProtected reports whether the URL's host is on the protected set.
// Scheme, port, path, query, and fragment are ignored; a leading "www."
// is stripped; matching is case-insensitive. Unparseable input counts as
// protected (fail toward suppression).
func (m *Matcher) IsProtected(rawURL string) bool {
	m.checks.Add(1)

	host := hostOf(rawURL)
	if host == "" {
		m.protected.Add(1)
		return true
	}

	m.mu.RLock()
	_, ok := m.domains[host]
	m.mu.RUnlock()

	if ok {
		m.protected.Add(1)
	}
	return ok
}

// Size returns the number of domains in the current snapshot.
func (m *Matcher) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.domains)
}

// LoadedAt returns when the current feed snapshot was loaded. Zero if only
// the compiled-in set is active.
func (m *Matcher) LoadedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Stats returns lifetime check counters.
func (m *Matcher) Stats() (checks, protected uint64) {
	return m.checks.Load(), m.protected.Load()
}

// hostOf extracts the normalized hostname from a raw URL. Inputs without a
// scheme ("rainn.org/chat") are handled too. Returns "" when no hostname
// can be extracted.
func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "www.")
	return host
}
