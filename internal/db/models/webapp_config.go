package models

import "time"

// WebAppConfigID is the id of the single web application config record.
const WebAppConfigID = 1

// WebAppConfig holds portal-level policy flags and branding. A single record
// (id=1) is used; when it exists its policy flags win over the environment
// defaults.
type WebAppConfig struct {
	// ID is always WebAppConfigID.
	ID uint `gorm:"primaryKey"`
	// AppTitle is the portal title shown to users.
	AppTitle string `gorm:"size:255;default:'Glasspane'"`
	// LocalFallbackEnabled allows local admin logins when directory
	// authentication fails or is not configured. No column default: a false
	// value must survive the insert.
	LocalFallbackEnabled bool
	// ProxyHostValidationEnabled restricts proxied targets to an allow-list.
	ProxyHostValidationEnabled bool `gorm:"default:false"`
	// CreatedAt is the timestamp when the record was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the record was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the WebAppConfig model.
func (WebAppConfig) TableName() string {
	return "webapp_config"
}
