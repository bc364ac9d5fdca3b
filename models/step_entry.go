package models

import (
	"time"

	"github.com/google/uuid"
)

// StepSource identifies where a step count came from.
type StepSource string

const (
	SourceManual    StepSource = "manual"
	SourceHealthKit StepSource = "healthkit"
	SourceGoogleFit StepSource = "google_fit"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// StepEntry is one recorded step count for a user on a calendar day.
type StepEntry struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	EntryDate      time.Time  `json:"-" db:"entry_date"`
	StepCount      int        `json:"step_count" db:"step_count"`
	DistanceMeters float64    `json:"distance_meters" db:"distance_meters"`
	Source         StepSource `json:"source" db:"source"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the StepEntry model
func (StepEntry) TableName() string {
	return "step_entries"
}

// NewStepEntry creates a step entry for userID on date.
func NewStepEntry(userID uuid.UUID, date time.Time, steps int, distance float64, source StepSource) *StepEntry {
	if source == "" {
		source = SourceManual
	}
	return &StepEntry{
		ID:             uuid.New(),
		UserID:         userID,
		EntryDate:      TruncateDay(date),
		StepCount:      steps,
		DistanceMeters: distance,
		Source:         source,
		CreatedAt:      time.Now().UTC(),
	}
}

// Date returns the entry date in DateLayout.
func (e *StepEntry) Date() string {
	return e.EntryDate.Format(DateLayout)
}

// DailyTotal is the sum of all step entries for one user on one day.
type DailyTotal struct {
	Date  time.Time `json:"-"`
	Steps int       `json:"steps"`
}

// TruncateDay drops the clock part of t, keeping its calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
