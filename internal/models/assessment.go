package models

import (
	"encoding/json"
	"time"
)

// Mental health statuses produced by the classifier.
const (
	StatusStable    = "stable"
	StatusDeclining = "declining"
	StatusCritical  = "critical"
)

// Support request tiers, in escalation order.
const (
	SupportNone               = "none"
	SupportBuddyRequested     = "buddy_requested"
	SupportCommunityRequested = "community_requested"
	SupportGlobalRequested    = "global_requested"
	SupportProvided           = "support_provided"
)

// ReasoningData is the metric snapshot an assessment was derived from. It is
// persisted alongside the assessment so the escalation engine and client UIs
// can explain the result without re-running the analysis.
type ReasoningData struct {
	SleepQuality          *float64 `json:"sleep_quality,omitempty"`
	SleepHours            *float64 `json:"sleep_hours,omitempty"`
	ActivityLevel         *float64 `json:"activity_level,omitempty"`
	CheckInMood           *float64 `json:"check_in_mood,omitempty"`
	StepsPerDay           *float64 `json:"steps_per_day,omitempty"`
	RecentExerciseMinutes *float64 `json:"recent_exercise_minutes,omitempty"`
	SignificantChanges    []string `json:"significant_changes,omitempty"`
}

// Assessment represents a row in the 'assessments' table.
type Assessment struct {
	ID                   string     `db:"id" json:"id"`
	UserID               int64      `db:"user_id" json:"user_id"`
	Timestamp            time.Time  `db:"timestamp" json:"timestamp"`
	MentalHealthStatus   string     `db:"status" json:"mental_health_status"`
	ConfidenceScore      float64    `db:"confidence_score" json:"confidence_score"`
	NeedsSupport         bool       `db:"needs_support" json:"needs_support"`
	SupportRequestStatus string     `db:"support_request_status" json:"support_request_status"`
	SupportRequestTime   *time.Time `db:"support_request_time" json:"support_request_time,omitempty"`
	SupportProvidedBy    *int64     `db:"support_provided_by" json:"support_provided_by,omitempty"`
	SupportProvidedTime  *time.Time `db:"support_provided_time" json:"support_provided_time,omitempty"`
	// TierUpdatedAt is the time of the last tier transition; the widening
	// policy measures staleness from it.
	TierUpdatedAt time.Time       `db:"tier_updated_at" json:"-"`
	ReasoningRaw  json.RawMessage `db:"reasoning" json:"-"`
}

// Reasoning decodes the jsonb reasoning column.
func (a *Assessment) Reasoning() (*ReasoningData, error) {
	if len(a.ReasoningRaw) == 0 {
		return &ReasoningData{}, nil
	}
	var rd ReasoningData
	if err := json.Unmarshal(a.ReasoningRaw, &rd); err != nil {
		return nil, err
	}
	return &rd, nil
}

// SupportRequest is an assessment joined with its submitter, as returned by
// the support-request list endpoints.
type SupportRequest struct {
	Assessment
	SubmitterUsername string `db:"submitter_username" json:"submitter_username"`
}

// BaselineProfile represents a row in the 'baseline_profiles' table. Profiles
// are additive history; the active baseline is the most recently established
// one.
type BaselineProfile struct {
	ID                     string          `db:"id" json:"id"`
	UserID                 int64           `db:"user_id" json:"user_id"`
	EstablishedAt          time.Time       `db:"established_at" json:"established_at"`
	SleepHours             float64         `db:"sleep_hours" json:"sleep_hours"`
	SleepQuality           float64         `db:"sleep_quality" json:"sleep_quality"`
	ActivityLevel          float64         `db:"activity_level" json:"activity_level"`
	AverageMoodScore       float64         `db:"average_mood_score" json:"average_mood_score"`
	AverageStepsPerDay     float64         `db:"average_steps_per_day" json:"average_steps_per_day"`
	ExerciseMinutesPerWeek float64         `db:"exercise_minutes_per_week" json:"exercise_minutes_per_week"`
	ConfidenceScore        float64         `db:"confidence_score" json:"confidence_score"`
	RawAssessment          json.RawMessage `db:"raw_assessment" json:"raw_assessment,omitempty"`
}
