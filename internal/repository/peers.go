package repository

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PeerRepository resolves the audience for each support tier.
type PeerRepository interface {
	BuddyIDs(userID int64) ([]int64, error)
	CommunityPeerIDs(userID int64) ([]int64, error)
	AllUserIDs() ([]int64, error)
}

type peerRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPeerRepository(db *sqlx.DB, logger *zap.Logger) PeerRepository {
	return &peerRepository{db: db, logger: logger}
}

func (r *peerRepository) BuddyIDs(userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT buddy_id FROM buddies WHERE user_id = $1`
	if err := r.db.Select(&ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

// CommunityPeerIDs returns every member of every community the user belongs
// to, excluding the user themselves.
func (r *peerRepository) CommunityPeerIDs(userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT DISTINCT cm2.user_id FROM community_members cm1
	          JOIN community_members cm2 ON cm1.community_id = cm2.community_id
	          WHERE cm1.user_id = $1 AND cm2.user_id <> $1`
	if err := r.db.Select(&ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *peerRepository) AllUserIDs() ([]int64, error) {
	var ids []int64
	if err := r.db.Select(&ids, `SELECT id FROM users`); err != nil {
		return nil, err
	}
	return ids, nil
}
