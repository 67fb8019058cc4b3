package repository

import (
	"time"

	"wellbeing-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type HealthMetricRepository interface {
	UpsertMetric(metric *models.HealthMetric) error
	GetMetricsSince(userID int64, since time.Time) ([]*models.HealthMetric, error)
}

type healthMetricRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewHealthMetricRepository(db *sqlx.DB, logger *zap.Logger) HealthMetricRepository {
	return &healthMetricRepository{db: db, logger: logger}
}

// UpsertMetric writes one day of passively-synced health data. Re-syncs for
// the same day overwrite the previous values.
func (r *healthMetricRepository) UpsertMetric(metric *models.HealthMetric) error {
	query := `INSERT INTO health_metrics (user_id, day, sleep_hours, sleep_quality, steps, exercise_minutes)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (user_id, day) DO UPDATE SET
	            sleep_hours = EXCLUDED.sleep_hours,
	            sleep_quality = EXCLUDED.sleep_quality,
	            steps = EXCLUDED.steps,
	            exercise_minutes = EXCLUDED.exercise_minutes
	          RETURNING id`
	return r.db.QueryRowx(query, metric.UserID, metric.Day, metric.SleepHours,
		metric.SleepQuality, metric.Steps, metric.ExerciseMinutes).Scan(&metric.ID)
}

func (r *healthMetricRepository) GetMetricsSince(userID int64, since time.Time) ([]*models.HealthMetric, error) {
	var metrics []*models.HealthMetric
	query := `SELECT id, user_id, day, sleep_hours, sleep_quality, steps, exercise_minutes
	          FROM health_metrics WHERE user_id = $1 AND day >= $2 ORDER BY day ASC`
	if err := r.db.Select(&metrics, query, userID, since); err != nil {
		return nil, err
	}
	return metrics, nil
}
