package allowlist

import "errors"

// Sentinel errors for the allowlist feed.
var (
	// ErrStale means the feed has not refreshed within the configured
	// threshold. The matcher keeps serving the previous snapshot.
	ErrStale = errors.New("allowlist feed is stale")

	// ErrEmptyFeed means the feed returned zero entries. Treated as a
	// degraded-protection condition, not as "allow everything".
	ErrEmptyFeed = errors.New("allowlist feed returned no entries")
)
