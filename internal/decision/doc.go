// Package decision implements the suppression decision consumed by the
// capture gate. ShouldSuppress is the single entry point; it returns a
// bare boolean so callers cannot observe, log, or branch on which reason
// produced a suppression.
//
// Every evaluation runs all three checks (protected resource, scheduled
// privacy gap, active blackout) regardless of intermediate results, so
// latency does not vary with the outcome or the branch that caused it.
// Any internal failure resolves to true: the system degrades toward
// privacy, never toward capture.
package decision
