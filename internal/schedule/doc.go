// Package schedule generates per-subject daily privacy-gap schedules.
//
// A schedule is deterministic within its day: regenerating for the same
// (subject, date) yields identical windows, so racing generators and
// restarted processes agree without coordination. The seed folds in a
// per-subject salt that lives only in the sealed store, so an observer who
// knows the algorithm and the subject identifier still cannot predict the
// windows.
//
// Schedules are ephemeral. They exist in the cache for at most ~26 hours
// and are never written to either Postgres domain, which leaves no history
// for pattern analysis.
package schedule
