package repository

import (
	"database/sql"
	"errors"

	"wellbeing-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type BaselineRepository interface {
	SaveProfile(profile *models.BaselineProfile) error
	GetActiveProfile(userID int64) (*models.BaselineProfile, error)
	GetHistory(userID int64, limit int) ([]*models.BaselineProfile, error)
}

type baselineRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewBaselineRepository(db *sqlx.DB, logger *zap.Logger) BaselineRepository {
	return &baselineRepository{db: db, logger: logger}
}

// SaveProfile inserts a new baseline profile. Profiles are never updated;
// history is additive and the active profile is the newest one.
func (r *baselineRepository) SaveProfile(profile *models.BaselineProfile) error {
	query := `INSERT INTO baseline_profiles
	            (id, user_id, established_at, sleep_hours, sleep_quality, activity_level,
	             average_mood_score, average_steps_per_day, exercise_minutes_per_week,
	             confidence_score, raw_assessment)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(query, profile.ID, profile.UserID, profile.EstablishedAt,
		profile.SleepHours, profile.SleepQuality, profile.ActivityLevel,
		profile.AverageMoodScore, profile.AverageStepsPerDay, profile.ExerciseMinutesPerWeek,
		profile.ConfidenceScore, profile.RawAssessment)
	return err
}

// GetActiveProfile returns the most recently established profile, or nil when
// the user has no baseline yet.
func (r *baselineRepository) GetActiveProfile(userID int64) (*models.BaselineProfile, error) {
	var profile models.BaselineProfile
	query := `SELECT id, user_id, established_at, sleep_hours, sleep_quality, activity_level,
	                 average_mood_score, average_steps_per_day, exercise_minutes_per_week,
	                 confidence_score, raw_assessment
	          FROM baseline_profiles WHERE user_id = $1 ORDER BY established_at DESC LIMIT 1`
	err := r.db.Get(&profile, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *baselineRepository) GetHistory(userID int64, limit int) ([]*models.BaselineProfile, error) {
	var profiles []*models.BaselineProfile
	query := `SELECT id, user_id, established_at, sleep_hours, sleep_quality, activity_level,
	                 average_mood_score, average_steps_per_day, exercise_minutes_per_week,
	                 confidence_score, raw_assessment
	          FROM baseline_profiles WHERE user_id = $1 ORDER BY established_at DESC LIMIT $2`
	if err := r.db.Select(&profiles, query, userID, limit); err != nil {
		return nil, err
	}
	return profiles, nil
}
