package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents a portal user account. Directory users are cached here on
// first successful login (DN set); local admin accounts carry a password hash
// and no DN.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// UID is the unique login identifier.
	UID string `gorm:"unique;size:255;not null"`
	// DN is the directory distinguished name. Empty for local-only accounts.
	DN string `gorm:"size:1024"`
	// DisplayName is the human-readable name shown in the portal.
	DisplayName string `gorm:"size:255"`
	// Email is the user's email address.
	Email string `gorm:"size:255"`
	// PasswordHash is the Argon2id hash for local admin accounts only.
	PasswordHash string `gorm:"size:255"`
	// CachedGroups is the list of directory group DNs observed at last login
	// or refresh. Stored as JSON.
	CachedGroups []string `gorm:"serializer:json"`
	// IsLocalAdmin marks the account as a local administrator. Local admins
	// may log in without the directory and always receive the admin role.
	IsLocalAdmin bool `gorm:"default:false"`
	// Disabled blocks authentication and authorization regardless of any
	// cached state.
	Disabled bool `gorm:"default:false"`
	// LastLogin is the timestamp of the last successful login.
	LastLogin *time.Time
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// Used when provisioning or resetting local admin passwords.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hash.
// Returns false for accounts without a hash.
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.PasswordHash)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
