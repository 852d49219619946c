package models

import "time"

// Site is an internal site or machine listed in the portal catalog. Access is
// gated by group mappings: a user sees a site when one of their cached groups
// is mapped to it.
type Site struct {
	// ID is the unique identifier for the site.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the site.
	Name string `gorm:"size:255;not null"`
	// URL is the unique entry point of the site.
	URL string `gorm:"size:1024;unique;not null"`
	// Description provides a human-readable explanation of the site.
	Description string `gorm:"size:1024"`
	// Visible hides the site from all listings when false. No column default:
	// a false value must survive the insert.
	Visible bool
	// HealthURL is an optional endpoint polled for status display.
	HealthURL string `gorm:"size:1024"`
	// Owner names the person or team responsible for the site.
	Owner string `gorm:"size:255"`
	// AccessMethods lists how the site can be reached (e.g. HTTPS, SSH). JSON.
	AccessMethods []string `gorm:"serializer:json"`
	// CreatedAt is the timestamp when the site was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the site was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Site model.
func (Site) TableName() string {
	return "sites"
}
