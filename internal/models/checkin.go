package models

import (
	"encoding/json"
	"time"
)

// Activity levels accepted on a check-in.
const (
	ActivityLevelLow      = "low"
	ActivityLevelModerate = "moderate"
	ActivityLevelHigh     = "high"
)

// Activity is a single activity entry on a check-in.
type Activity struct {
	Type  string `json:"type"`
	Level string `json:"level"` // low, moderate, high
}

// CheckIn represents a row in the 'check_ins' table. Check-ins are immutable
// once stored.
type CheckIn struct {
	ID              string          `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	Timestamp       time.Time       `db:"timestamp" json:"timestamp"`
	MoodScore       int             `db:"mood_score" json:"mood_score"` // 1-5
	MoodLabel       string          `db:"mood_label" json:"mood_label"`
	MoodDescription string          `db:"mood_description" json:"mood_description,omitempty"`
	ActivitiesRaw   json.RawMessage `db:"activities" json:"-"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
}

// Activities decodes the jsonb activities column.
func (c *CheckIn) Activities() ([]Activity, error) {
	if len(c.ActivitiesRaw) == 0 {
		return nil, nil
	}
	var activities []Activity
	if err := json.Unmarshal(c.ActivitiesRaw, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// CheckInInput is the request body for submitting a check-in.
type CheckInInput struct {
	Mood struct {
		Score       int    `json:"score" binding:"required"`
		Label       string `json:"label"`
		Description string `json:"description"`
	} `json:"mood" binding:"required"`
	Activities []Activity `json:"activities"`
	Notes      *string    `json:"notes"`
}

// CadenceStatus is the response for GET /check-in/status.
type CadenceStatus struct {
	CanCheckIn      bool       `json:"can_check_in"`
	NextCheckInTime *time.Time `json:"next_check_in_time,omitempty"`
}

// HealthMetric represents one day of passively-synced health data, upserted
// per (user, day) in the 'health_metrics' table.
type HealthMetric struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Day             time.Time `db:"day" json:"day"`
	SleepHours      float64   `db:"sleep_hours" json:"sleep_hours"`
	SleepQuality    float64   `db:"sleep_quality" json:"sleep_quality"` // 1-10
	Steps           int64     `db:"steps" json:"steps"`
	ExerciseMinutes int64     `db:"exercise_minutes" json:"exercise_minutes"`
}
