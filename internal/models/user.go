package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User represents a registered user stored in the 'users' table.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"` // "member" or "admin"
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Claims defines the JWT claims carried by an access token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Community is a peer group whose members can see community-tier support requests.
type Community struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
