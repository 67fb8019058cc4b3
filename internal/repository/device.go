package repository

import (
	"time"

	"wellbeing-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type DeviceRepository interface {
	UpsertDevice(device *models.Device) error
	ListForUser(userID int64) ([]*models.Device, error)
	SetCooldown(userID int64, cooldown bool, lastCheckIn *time.Time) error
	ListCooldownExpired(cutoff time.Time) ([]int64, error)
}

type deviceRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDeviceRepository(db *sqlx.DB, logger *zap.Logger) DeviceRepository {
	return &deviceRepository{db: db, logger: logger}
}

func (r *deviceRepository) UpsertDevice(device *models.Device) error {
	query := `INSERT INTO devices (user_id, device_id, push_token, platform, check_in_cooldown, last_check_in, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (user_id, device_id) DO UPDATE SET
	            push_token = EXCLUDED.push_token,
	            platform = EXCLUDED.platform,
	            updated_at = EXCLUDED.updated_at
	          RETURNING id`
	return r.db.QueryRowx(query, device.UserID, device.DeviceID, device.PushToken,
		device.Platform, device.CheckInCooldown, device.LastCheckIn, device.UpdatedAt).Scan(&device.ID)
}

func (r *deviceRepository) ListForUser(userID int64) ([]*models.Device, error) {
	var devices []*models.Device
	query := `SELECT id, user_id, device_id, push_token, platform, check_in_cooldown, last_check_in, updated_at
	          FROM devices WHERE user_id = $1`
	if err := r.db.Select(&devices, query, userID); err != nil {
		return nil, err
	}
	return devices, nil
}

// SetCooldown flips the cooldown flag on every device the user has registered.
func (r *deviceRepository) SetCooldown(userID int64, cooldown bool, lastCheckIn *time.Time) error {
	query := `UPDATE devices
	          SET check_in_cooldown = $1,
	              last_check_in = COALESCE($2, last_check_in),
	              updated_at = NOW()
	          WHERE user_id = $3`
	_, err := r.db.Exec(query, cooldown, lastCheckIn, userID)
	return err
}

// ListCooldownExpired returns users who still have devices flagged as on
// cooldown even though their last check-in is older than the cutoff. The
// availability sweep clears these.
func (r *deviceRepository) ListCooldownExpired(cutoff time.Time) ([]int64, error) {
	var userIDs []int64
	query := `SELECT DISTINCT user_id FROM devices
	          WHERE check_in_cooldown = TRUE AND (last_check_in IS NULL OR last_check_in < $1)`
	if err := r.db.Select(&userIDs, query, cutoff); err != nil {
		return nil, err
	}
	return userIDs, nil
}
