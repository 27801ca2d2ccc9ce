// Package allowlist implements protected-resource matching for the
// decision engine.
//
// Matching is hostname-only and deliberately over-blocks: known URL
// shorteners are compiled in and always protected, because the matcher
// never follows redirects and a shortened link may resolve to a crisis
// resource. A false positive costs one camouflaged capture gap; a false
// negative could expose a crisis-site visit.
//
// The domain set is replaced wholesale by the feed refresher. When the
// feed goes stale or empty the matcher keeps serving its last snapshot
// (plus the compiled-in shorteners) and the condition is recorded in the
// sealed audit log only; degraded protection is never family-visible.
package allowlist
