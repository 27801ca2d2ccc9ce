package domain

import "time"

// ActivityType enumerates the kinds of timeline entries the capture pipeline
// produces for a subject.
type ActivityType string

const (
	ActivityBrowse      ActivityType = "browse"
	ActivitySearch      ActivityType = "search"
	ActivityVideo       ActivityType = "video"
	ActivityApp         ActivityType = "app"
	ActivityScreenshot  ActivityType = "screenshot"
	ActivityIdle        ActivityType = "idle"
)

// ActivityEntry is one row on the family-visible timeline. Synthetic entries
// are shaped identically to captured ones; the synthetic marker exists only
// on the sealed companion record, never on this struct.
type ActivityEntry struct {
	ID        string            `json:"id" db:"id"`
	SubjectID string            `json:"subject_id" db:"subject_id"`
	Timestamp time.Time         `json:"timestamp" db:"occurred_at"`
	Type      ActivityType      `json:"type" db:"entry_type"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Subject is the monitored individual. The timezone is an IANA zone name
// used to convert capture timestamps to local minute-of-day.
type Subject struct {
	ID       string `json:"id" db:"id"`
	FamilyID string `json:"family_id" db:"family_id"`
	Timezone string `json:"timezone" db:"timezone"`
}

// Guardian is a family member who receives notifications about a subject.
type Guardian struct {
	ID       string `json:"id" db:"id"`
	FamilyID string `json:"family_id" db:"family_id"`
}
