// Package worker holds the background loops of the protection core: the
// blackout expiry sweep, the backfill queue consumer, the allowlist
// refresher, and the nightly schedule pre-generation. Each worker is a
// blocking Start(ctx) loop; cancellation of the context is the only stop
// signal.
package worker
