package domain

import "time"

// BlackoutStatus enumerates the states of a signal blackout.
type BlackoutStatus string

const (
	BlackoutActive   BlackoutStatus = "active"
	BlackoutExpired  BlackoutStatus = "expired"
	BlackoutReleased BlackoutStatus = "released"
)

// DefaultBlackoutDuration is the initial window opened with every signal.
const DefaultBlackoutDuration = 48 * time.Hour

// AllowedExtensionHours are the only extension increments a partner may apply.
var AllowedExtensionHours = []int{24, 48, 72}

// SignalBlackout is the notification blackout opened atomically with a
// distress signal. It lives exclusively in the sealed store and is owned by
// the blackout service; no family-visible document ever references one.
type SignalBlackout struct {
	ID         string              `json:"id" db:"id"`
	SubjectID  string              `json:"subject_id" db:"subject_id"`
	SignalID   string              `json:"signal_id" db:"signal_id"`
	StartedAt  time.Time           `json:"started_at" db:"started_at"`
	ExpiresAt  time.Time           `json:"expires_at" db:"expires_at"`
	Status     BlackoutStatus      `json:"status" db:"status"`
	Extensions []BlackoutExtension `json:"extensions"`
}

// Covers reports whether the blackout suppresses activity at time t.
func (b SignalBlackout) Covers(t time.Time) bool {
	return b.Status == BlackoutActive && !t.Before(b.StartedAt) && t.Before(b.ExpiresAt)
}

// BlackoutExtension is one append-only extension applied by a partner
// principal while the blackout is active.
type BlackoutExtension struct {
	ExtendedBy      string    `json:"extended_by" db:"extended_by"`
	ExtendedAt      time.Time `json:"extended_at" db:"extended_at"`
	AdditionalHours int       `json:"additional_hours" db:"additional_hours"`
	Reason          string    `json:"reason" db:"reason"`
}

// ValidExtensionHours reports whether hours is one of the fixed increments.
func ValidExtensionHours(hours int) bool {
	for _, h := range AllowedExtensionHours {
		if hours == h {
			return true
		}
	}
	return false
}
