package models

import "time"

// RoleMapping pairs one cached directory group with one role. It is the
// source of truth for authorization: users receive the roles mapped from
// their cached groups. Created and deleted only by administrators.
type RoleMapping struct {
	// ID is the unique identifier for the mapping.
	ID uint `gorm:"primaryKey"`
	// GroupID is the cached directory group. Unique together with RoleID.
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_role"`
	// RoleID is the role granted to members of the group.
	RoleID uint `gorm:"not null;uniqueIndex:idx_group_role"`
	// Group is the associated group. Deleting a group removes its mappings (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// Role is the associated role. Deleting a role removes its mappings (CASCADE).
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the mapping was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the RoleMapping model.
func (RoleMapping) TableName() string {
	return "role_mappings"
}
