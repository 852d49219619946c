package models

import "time"

// Group is a locally cached directory group. Groups are discovered during
// login lookups and role-mapping administration and are upserted by their DN.
// Stale entries are harmless; they simply stop matching and are never
// deleted automatically.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey"`
	// DN is the directory distinguished name, stored with its original
	// casing. Unique case-sensitively; lookups fall back to a
	// case-insensitive comparison.
	DN string `gorm:"size:1024;uniqueIndex;not null"`
	// CN is the group's common name, when observed.
	CN string `gorm:"size:255"`
	// Description provides a human-readable explanation of the group.
	Description string `gorm:"size:1024"`
	// LastSeen is refreshed every time the group is observed in the directory.
	LastSeen time.Time
	// CreatedAt is the timestamp when the group was first cached (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "directory_groups"
}
