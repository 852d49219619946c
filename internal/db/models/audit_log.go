package models

import "time"

// AuditLog records security-relevant events (logins, logouts, admin actions).
// Writes are best-effort: a failed audit insert never aborts the operation
// that produced it.
type AuditLog struct {
	// ID is the unique identifier for the event.
	ID uint64 `gorm:"primaryKey"`
	// TS is the event timestamp.
	TS time.Time `gorm:"index;autoCreateTime"`
	// UserID references the acting user, when known.
	UserID *uint64
	// IP is the client address the request originated from.
	IP string `gorm:"size:64"`
	// Action is the event name (e.g. login_success, login_failed).
	Action string `gorm:"size:255;not null;index"`
	// Details carries event-specific key/value context. Stored as JSON.
	Details map[string]any `gorm:"serializer:json"`
}

// TableName specifies the database table name for the AuditLog model.
func (AuditLog) TableName() string {
	return "audit_log"
}
