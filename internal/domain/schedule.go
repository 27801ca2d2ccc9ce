package domain

import "time"

// Gap window bounds. A daily schedule carries between MinGapsPerDay and
// MaxGapsPerDay windows, each lasting MinGapMinutes to MaxGapMinutes.
const (
	MinGapsPerDay = 2
	MaxGapsPerDay = 4

	MinGapMinutes = 5
	MaxGapMinutes = 15

	// MinGapSpacing is the default minimum distance between the end of one
	// window and the start of the next.
	MinGapSpacing = 2 * time.Hour
)

// GapWindow is a single privacy gap inside one day.
// StartMinute is a minute-of-day in the subject's local time (0..1439).
// A window whose StartMinute+DurationMinutes exceeds 1440 wraps past midnight.
type GapWindow struct {
	StartMinute     int `json:"start_minute"`
	DurationMinutes int `json:"duration_minutes"`
}

// Contains reports whether the given minute-of-day falls inside the window,
// handling windows that wrap past midnight.
func (w GapWindow) Contains(minuteOfDay int) bool {
	end := w.StartMinute + w.DurationMinutes
	if end <= 1440 {
		return minuteOfDay >= w.StartMinute && minuteOfDay < end
	}
	// Wrapped: [start, 1440) or [0, end-1440)
	return minuteOfDay >= w.StartMinute || minuteOfDay < end-1440
}

// DailyGapSchedule is the full set of privacy gaps for one subject on one
// calendar day. Schedules are ephemeral: they are regenerated on demand and
// never stored beyond the day they cover.
type DailyGapSchedule struct {
	SubjectID string      `json:"subject_id"`
	Date      string      `json:"date"` // "2006-01-02"
	Windows   []GapWindow `json:"windows"`
}

// InGap reports whether the given minute-of-day falls inside any window.
func (s DailyGapSchedule) InGap(minuteOfDay int) bool {
	for _, w := range s.Windows {
		if w.Contains(minuteOfDay) {
			return true
		}
	}
	return false
}
