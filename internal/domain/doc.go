// Package domain defines the core business types for the Kindlight
// protection core.
//
// Types in this package are pure value objects with no behavior, no database
// dependencies, and no HTTP concerns. They are the shared language between
// handlers, services, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/DB tags are allowed (they're metadata, not behavior)
//   - Validation methods are allowed (they're pure functions on the type)
//   - Constants and enums belong here
//
// One rule is specific to this system: nothing here may tie a family-visible
// type to a sealed-domain type. A family-visible struct never embeds, keys,
// or references a SignalBlackout, SealedAuditEntry, or a suppression cause.
package domain
