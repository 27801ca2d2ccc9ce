// Package postgres implements the service repositories over the two
// PostgreSQL stores. Constructors take either *store.Family or
// *store.Sealed, never a bare handle, so a repository cannot be wired to
// the wrong isolation domain without a type error.
package postgres
