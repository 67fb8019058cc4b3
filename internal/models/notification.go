package models

import "time"

// Notification types carried in the payload's data.type field.
const (
	NotificationTypeWellness         = "wellness"
	NotificationTypeBuddySupport     = "buddy_support"
	NotificationTypeCommunitySupport = "community_support"
	NotificationTypeGlobalSupport    = "global_support"
)

// Well-known tracker flag keys.
const (
	FlagCheckInAvailable = "check-in-available"
)

// Titles identifying semantic notification classes in the ledger.
const (
	TitleCheckInAvailable = "Check-In Available"
	TitleCheckInRecorded  = "Check-In Recorded"
)

// Notification represents a row in the 'notifications' table (the local
// notification ledger served back to clients).
type Notification struct {
	ID          string    `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	Type        string    `db:"type" json:"type"`
	Actionable  bool      `db:"actionable" json:"actionable"`
	ActionRoute string    `db:"action_route" json:"action_route,omitempty"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// NotificationData is the structured payload delivered with a notification.
type NotificationData struct {
	Type        string `json:"type"`
	Actionable  bool   `json:"actionable"`
	ActionRoute string `json:"action_route,omitempty"`
}

// NotificationFlag is a persisted dedup flag in 'notification_flags'. Flags
// expire after a validity window and survive process restarts, unlike the
// in-memory dedup set.
type NotificationFlag struct {
	UserID  int64     `db:"user_id" json:"user_id"`
	FlagKey string    `db:"flag_key" json:"flag_key"`
	ShownAt time.Time `db:"shown_at" json:"shown_at"`
}

// Device represents a row in the 'devices' table, upserted on registration
// and on cooldown transitions.
type Device struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	DeviceID        string     `db:"device_id" json:"device_id"`
	PushToken       string     `db:"push_token" json:"push_token"`
	Platform        string     `db:"platform" json:"platform"` // ios, android, web
	CheckInCooldown bool       `db:"check_in_cooldown" json:"check_in_cooldown"`
	LastCheckIn     *time.Time `db:"last_check_in" json:"last_check_in,omitempty"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// RegisterDeviceInput is the request body for device registration.
type RegisterDeviceInput struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}
