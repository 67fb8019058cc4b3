package repository

import (
	"database/sql"
	"errors"

	"wellbeing-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type NotificationRepository interface {
	SaveNotification(n *models.Notification) error
	ListForUser(userID int64, limit int) ([]*models.Notification, error)
	MarkRead(userID int64, id string) error
	MarkReadByTitle(userID int64, title string) error
	UnreadExistsByTitle(userID int64, title string) (bool, error)
	UpsertFlag(flag *models.NotificationFlag) error
	GetFlag(userID int64, key string) (*models.NotificationFlag, error)
	DeleteFlag(userID int64, key string) error
}

type notificationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewNotificationRepository(db *sqlx.DB, logger *zap.Logger) NotificationRepository {
	return &notificationRepository{db: db, logger: logger}
}

func (r *notificationRepository) SaveNotification(n *models.Notification) error {
	query := `INSERT INTO notifications (id, user_id, title, body, type, actionable, action_route, read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(query, n.ID, n.UserID, n.Title, n.Body, n.Type,
		n.Actionable, n.ActionRoute, n.Read, n.CreatedAt)
	return err
}

func (r *notificationRepository) ListForUser(userID int64, limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := `SELECT id, user_id, title, body, type, actionable, action_route, read, created_at
	          FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := r.db.Select(&notifications, query, userID, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(userID int64, id string) error {
	_, err := r.db.Exec(`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}

// MarkReadByTitle consumes every unread notification of one class, e.g. the
// pending "Check-In Available" entries when a check-in is submitted.
func (r *notificationRepository) MarkReadByTitle(userID int64, title string) error {
	_, err := r.db.Exec(`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND title = $2 AND read = FALSE`,
		userID, title)
	return err
}

func (r *notificationRepository) UnreadExistsByTitle(userID int64, title string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND title = $2 AND read = FALSE`
	if err := r.db.Get(&count, query, userID, title); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *notificationRepository) UpsertFlag(flag *models.NotificationFlag) error {
	query := `INSERT INTO notification_flags (user_id, flag_key, shown_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, flag_key) DO UPDATE SET shown_at = EXCLUDED.shown_at`
	_, err := r.db.Exec(query, flag.UserID, flag.FlagKey, flag.ShownAt)
	return err
}

func (r *notificationRepository) GetFlag(userID int64, key string) (*models.NotificationFlag, error) {
	var flag models.NotificationFlag
	query := `SELECT user_id, flag_key, shown_at FROM notification_flags WHERE user_id = $1 AND flag_key = $2`
	err := r.db.Get(&flag, query, userID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

func (r *notificationRepository) DeleteFlag(userID int64, key string) error {
	_, err := r.db.Exec(`DELETE FROM notification_flags WHERE user_id = $1 AND flag_key = $2`, userID, key)
	return err
}
