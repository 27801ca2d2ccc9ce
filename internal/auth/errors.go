package auth

import "errors"

// Sentinel errors for principal verification.
var (
	ErrNoToken   = errors.New("missing bearer token")
	ErrForbidden = errors.New("principal not authorized for this surface")
)
