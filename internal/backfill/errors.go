package backfill

import "errors"

var (
	// ErrNotFound is returned by fill stores for unknown fill IDs.
	ErrNotFound = errors.New("synthetic fill not found")

	// ErrInvalidInterval is returned for empty or reversed gap intervals.
	ErrInvalidInterval = errors.New("gap interval is empty or reversed")
)
