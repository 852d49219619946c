package models

import "time"

// DirectoryConfigID is the id of the single directory override record.
const DirectoryConfigID = 1

// DirectoryConfig is the administrator-edited directory connection override.
// A single record (id=1) is used; when it exists, is enabled and carries a
// URL, it overrides every environment default field-by-field. The bind
// password is write-only in any outward representation.
type DirectoryConfig struct {
	// ID is always DirectoryConfigID.
	ID uint `gorm:"primaryKey"`
	// URL is the directory connection URL (ldap:// or ldaps://).
	URL string `gorm:"size:1024"`
	// UseTLS requires transport security. With an ldap:// URL this forces a
	// StartTLS upgrade; either way a CA certificate must be configured.
	// No column default: a false value must survive the insert.
	UseTLS bool
	// BindDN is the service account used for searches.
	BindDN string `gorm:"size:1024"`
	// BindPassword is the service account secret. Masked on read.
	BindPassword string `gorm:"size:1024"`
	// BaseDN is the root of all searches.
	BaseDN string `gorm:"size:1024"`
	// UserDN is the user search root; BaseDN is used when empty.
	UserDN string `gorm:"size:1024"`
	// GroupDN is the group search root; BaseDN is used when empty.
	GroupDN string `gorm:"size:1024"`
	// UserFilter is the user search filter template with a {username} placeholder.
	UserFilter string `gorm:"size:1024"`
	// GroupFilter is the filter selecting group entries during reverse lookup.
	GroupFilter string `gorm:"size:1024"`
	// GroupAttribute is the user-entry attribute holding group references.
	GroupAttribute string `gorm:"size:255"`
	// CACertPath points at the CA certificate used for server validation.
	CACertPath string `gorm:"size:1024"`
	// SearchTimeout bounds every search, in seconds.
	SearchTimeout int `gorm:"default:5"`
	// Enabled toggles the override; a disabled record falls back to the
	// environment defaults.
	Enabled bool
	// CreatedAt is the timestamp when the record was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the record was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the DirectoryConfig model.
func (DirectoryConfig) TableName() string {
	return "directory_config"
}
