// Package backfill generates synthetic timeline activity for intervals a
// blackout suppressed, so the family-visible timeline carries no gap
// that correlates with a distress signal.
//
// Generated entries are modeled on the subject's own recent history
// (rate by hour of day, activity-type mix, metadata drawn from observed
// entries) and are written through the same table the capture pipeline
// uses. The only record that an interval was synthesized lives in the
// sealed store. Runs are idempotent: the fill ID and every entry ID are
// derived deterministically from the subject and interval, so a retried
// run inserts the same rows it would have the first time.
package backfill
