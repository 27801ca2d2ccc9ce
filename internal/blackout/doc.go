// Package blackout implements the notification blackout that opens
// atomically with every distress signal.
//
// The state machine per signal is none → active → {expired | released}.
// Every transition is serialized per signal with a distributed lock, is
// recorded in the sealed audit log, and never touches family-visible
// storage. Only a verified external-partner principal can extend or
// release a blackout; the service encodes that requirement in its method
// signatures, not in a role check.
package blackout
