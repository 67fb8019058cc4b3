package repository

import (
	"database/sql"
	"errors"
	"time"

	"wellbeing-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type CheckInRepository interface {
	SaveCheckIn(checkIn *models.CheckIn) error
	GetLatestCheckIn(userID int64) (*models.CheckIn, error)
	GetCheckInsSince(userID int64, since time.Time) ([]*models.CheckIn, error)
	RewindLatestCheckIn(userID int64, to time.Time) error
}

type checkInRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewCheckInRepository(db *sqlx.DB, logger *zap.Logger) CheckInRepository {
	return &checkInRepository{db: db, logger: logger}
}

func (r *checkInRepository) SaveCheckIn(checkIn *models.CheckIn) error {
	query := `INSERT INTO check_ins (id, user_id, timestamp, mood_score, mood_label, mood_description, activities, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.Exec(query, checkIn.ID, checkIn.UserID, checkIn.Timestamp, checkIn.MoodScore,
		checkIn.MoodLabel, checkIn.MoodDescription, checkIn.ActivitiesRaw, checkIn.Notes)
	return err
}

// GetLatestCheckIn returns the most recent check-in for the user, or nil when
// the user has never checked in.
func (r *checkInRepository) GetLatestCheckIn(userID int64) (*models.CheckIn, error) {
	var checkIn models.CheckIn
	query := `SELECT id, user_id, timestamp, mood_score, mood_label, mood_description, activities, notes
	          FROM check_ins WHERE user_id = $1 ORDER BY timestamp DESC LIMIT 1`
	err := r.db.Get(&checkIn, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &checkIn, nil
}

func (r *checkInRepository) GetCheckInsSince(userID int64, since time.Time) ([]*models.CheckIn, error) {
	var checkIns []*models.CheckIn
	query := `SELECT id, user_id, timestamp, mood_score, mood_label, mood_description, activities, notes
	          FROM check_ins WHERE user_id = $1 AND timestamp >= $2 ORDER BY timestamp ASC`
	if err := r.db.Select(&checkIns, query, userID, since); err != nil {
		return nil, err
	}
	return checkIns, nil
}

// RewindLatestCheckIn moves the newest check-in's timestamp back to the given
// time. Developer escape hatch for the cooldown timer; the row itself stays.
func (r *checkInRepository) RewindLatestCheckIn(userID int64, to time.Time) error {
	query := `UPDATE check_ins SET timestamp = $1
	          WHERE id = (SELECT id FROM check_ins WHERE user_id = $2 ORDER BY timestamp DESC LIMIT 1)`
	_, err := r.db.Exec(query, to, userID)
	return err
}
