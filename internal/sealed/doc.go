// Package sealed implements the append-only audit log in the sealed
// store. Suppression events, blackout transitions, backfill runs, and
// degraded-protection alarms are recorded here and nowhere else; process
// logs never carry these facts.
//
// Entries form a hash chain per shard: each entry's integrity hash is
// the SHA-256 of its predecessor's hash and its own canonical JSON, so
// any later modification or deletion is detectable by replaying the
// chain. Reads require a compliance principal; the storage contract has
// no update and no delete.
package sealed
