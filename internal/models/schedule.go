package models

import "time"

// WeeklyScheduleEntry is a recurring open interval on one weekday of a provider's calendar.
// Multiple entries per weekday are allowed (split shifts).
type WeeklyScheduleEntry struct {
	ID         string    `db:"id" json:"id"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	DayOfWeek  int       `db:"day_of_week" json:"day_of_week"`
	StartTime  string    `db:"start_time" json:"start_time"`
	EndTime    string    `db:"end_time" json:"end_time"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ExceptionKind distinguishes full-day closures from replacement hours.
type ExceptionKind string

const (
	ExceptionClosed       ExceptionKind = "CLOSED"
	ExceptionSpecialHours ExceptionKind = "SPECIAL_HOURS"
)

// ScheduleException is a date-specific override that takes precedence over the
// weekly schedule. SPECIAL_HOURS carries a replacement interval; CLOSED ignores times.
type ScheduleException struct {
	ID         string        `db:"id" json:"id"`
	ProviderID string        `db:"provider_id" json:"provider_id"`
	Date       string        `db:"exception_date" json:"date"`
	Kind       ExceptionKind `db:"kind" json:"kind"`
	StartTime  *string       `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string       `db:"end_time" json:"end_time,omitempty"`
	Reason     *string       `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// TimeRange is a half-open [Start, End) interval within a single day.
// Times use 24h "HH:MM" notation, which compares correctly as strings.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayAvailability is the resolved set of open intervals for one provider and date.
type DayAvailability struct {
	ProviderID string      `json:"provider_id"`
	Date       string      `json:"date"`
	Open       []TimeRange `json:"open"`
}
