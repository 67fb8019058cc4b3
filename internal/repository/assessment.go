package repository

import (
	"database/sql"
	"errors"
	"time"

	"wellbeing-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type AssessmentRepository interface {
	SaveAssessment(assessment *models.Assessment) error
	GetAssessmentByID(id string) (*models.Assessment, error)
	GetLatest(userID int64) (*models.Assessment, error)
	GetOpenRequest(userID int64) (*models.Assessment, error)
	GetHistory(userID int64, limit int) ([]*models.Assessment, error)
	UpdateSupportStatus(id, status string, requestTime *time.Time, tierUpdatedAt time.Time) error
	MarkSupportProvided(id string, helperID int64, at time.Time) (bool, error)
	ListBuddyRequests(viewerID int64) ([]*models.SupportRequest, error)
	ListCommunityRequests(viewerID int64) ([]*models.SupportRequest, error)
	ListGlobalRequests() ([]*models.SupportRequest, error)
	ListStaleTiered(cutoff time.Time) ([]*models.Assessment, error)
	DeleteAllForUser(userID int64) error
}

type assessmentRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAssessmentRepository(db *sqlx.DB, logger *zap.Logger) AssessmentRepository {
	return &assessmentRepository{db: db, logger: logger}
}

const assessmentColumns = `id, user_id, timestamp, status, confidence_score, needs_support,
	support_request_status, support_request_time, support_provided_by, support_provided_time,
	tier_updated_at, reasoning`

func (r *assessmentRepository) SaveAssessment(a *models.Assessment) error {
	query := `INSERT INTO assessments
	            (id, user_id, timestamp, status, confidence_score, needs_support,
	             support_request_status, support_request_time, reasoning, tier_updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(query, a.ID, a.UserID, a.Timestamp, a.MentalHealthStatus,
		a.ConfidenceScore, a.NeedsSupport, a.SupportRequestStatus, a.SupportRequestTime,
		a.ReasoningRaw, a.Timestamp)
	return err
}

func (r *assessmentRepository) GetAssessmentByID(id string) (*models.Assessment, error) {
	var a models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`
	err := r.db.Get(&a, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepository) GetLatest(userID int64) (*models.Assessment, error) {
	var a models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments
	          WHERE user_id = $1 ORDER BY timestamp DESC LIMIT 1`
	err := r.db.Get(&a, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// GetOpenRequest returns the user's currently tiered support request, if any.
// A user has at most one open request at a time; the engine widens it rather
// than opening another.
func (r *assessmentRepository) GetOpenRequest(userID int64) (*models.Assessment, error) {
	var a models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments
	          WHERE user_id = $1 AND support_request_status IN ($2, $3, $4)
	          ORDER BY timestamp DESC LIMIT 1`
	err := r.db.Get(&a, query, userID,
		models.SupportBuddyRequested, models.SupportCommunityRequested, models.SupportGlobalRequested)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *assessmentRepository) GetHistory(userID int64, limit int) ([]*models.Assessment, error) {
	var assessments []*models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments
	          WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`
	if err := r.db.Select(&assessments, query, userID, limit); err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepository) UpdateSupportStatus(id, status string, requestTime *time.Time, tierUpdatedAt time.Time) error {
	query := `UPDATE assessments
	          SET support_request_status = $1,
	              support_request_time = COALESCE($2, support_request_time),
	              tier_updated_at = $3
	          WHERE id = $4`
	_, err := r.db.Exec(query, status, requestTime, tierUpdatedAt, id)
	return err
}

// MarkSupportProvided transitions a tiered request to support_provided. The
// tier check runs inside the UPDATE so concurrent helpers cannot both win;
// the bool reports whether this call performed the transition.
func (r *assessmentRepository) MarkSupportProvided(id string, helperID int64, at time.Time) (bool, error) {
	query := `UPDATE assessments
	          SET support_request_status = $1, support_provided_by = $2, support_provided_time = $3
	          WHERE id = $4 AND support_request_status IN ($5, $6, $7)`
	result, err := r.db.Exec(query, models.SupportProvided, helperID, at, id,
		models.SupportBuddyRequested, models.SupportCommunityRequested, models.SupportGlobalRequested)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListBuddyRequests returns buddy-tier requests from the viewer's buddies,
// with the submitter's username attached.
func (r *assessmentRepository) ListBuddyRequests(viewerID int64) ([]*models.SupportRequest, error) {
	var requests []*models.SupportRequest
	query := `SELECT a.id, a.user_id, a.timestamp, a.status, a.confidence_score, a.needs_support,
	                 a.support_request_status, a.support_request_time, a.support_provided_by,
	                 a.support_provided_time, a.reasoning, u.username AS submitter_username
	          FROM assessments a
	          JOIN users u ON u.id = a.user_id
	          WHERE a.support_request_status = $1
	            AND a.user_id IN (SELECT buddy_id FROM buddies WHERE user_id = $2)
	          ORDER BY a.support_request_time ASC`
	if err := r.db.Select(&requests, query, models.SupportBuddyRequested, viewerID); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListCommunityRequests returns community-tier requests from users sharing at
// least one community with the viewer.
func (r *assessmentRepository) ListCommunityRequests(viewerID int64) ([]*models.SupportRequest, error) {
	var requests []*models.SupportRequest
	query := `SELECT a.id, a.user_id, a.timestamp, a.status, a.confidence_score, a.needs_support,
	                 a.support_request_status, a.support_request_time, a.support_provided_by,
	                 a.support_provided_time, a.reasoning, u.username AS submitter_username
	          FROM assessments a
	          JOIN users u ON u.id = a.user_id
	          WHERE a.support_request_status = $1
	            AND a.user_id IN (
	              SELECT cm2.user_id FROM community_members cm1
	              JOIN community_members cm2 ON cm1.community_id = cm2.community_id
	              WHERE cm1.user_id = $2)
	          ORDER BY a.support_request_time ASC`
	if err := r.db.Select(&requests, query, models.SupportCommunityRequested, viewerID); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *assessmentRepository) ListGlobalRequests() ([]*models.SupportRequest, error) {
	var requests []*models.SupportRequest
	query := `SELECT a.id, a.user_id, a.timestamp, a.status, a.confidence_score, a.needs_support,
	                 a.support_request_status, a.support_request_time, a.support_provided_by,
	                 a.support_provided_time, a.reasoning, u.username AS submitter_username
	          FROM assessments a
	          JOIN users u ON u.id = a.user_id
	          WHERE a.support_request_status = $1
	          ORDER BY a.support_request_time ASC`
	if err := r.db.Select(&requests, query, models.SupportGlobalRequested); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListStaleTiered returns widenable requests whose last tier transition is
// older than the cutoff. Global-tier requests have no wider tier and are not
// returned.
func (r *assessmentRepository) ListStaleTiered(cutoff time.Time) ([]*models.Assessment, error) {
	var assessments []*models.Assessment
	query := `SELECT ` + assessmentColumns + ` FROM assessments
	          WHERE support_request_status IN ($1, $2) AND tier_updated_at < $3
	          ORDER BY tier_updated_at ASC`
	if err := r.db.Select(&assessments, query,
		models.SupportBuddyRequested, models.SupportCommunityRequested, cutoff); err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepository) DeleteAllForUser(userID int64) error {
	_, err := r.db.Exec(`DELETE FROM assessments WHERE user_id = $1`, userID)
	return err
}
