// Package store enforces the boundary between the two storage domains.
//
// The family-reachable database and the sealed database are opened from
// separate DSNs with separate credentials, and are represented by two
// distinct client types with disjoint method sets. A repository over
// family data takes a *store.Family; a repository over sealed data takes a
// *store.Sealed. Handing one where the other is expected is a compile
// error, not a code-review catch.
//
// There is deliberately no conversion between the two types, no shared
// interface exposing a database handle, and no helper that joins across
// them.
package store
