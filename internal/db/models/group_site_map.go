package models

import "time"

// GroupSiteMap is the many-to-many mapping of cached directory groups to
// catalog sites. Members of a mapped group can see the site.
type GroupSiteMap struct {
	// ID is the unique identifier for the mapping.
	ID uint `gorm:"primaryKey"`
	// GroupID is the cached directory group. Unique together with SiteID.
	GroupID uint `gorm:"not null;uniqueIndex:idx_group_site"`
	// SiteID is the mapped site.
	SiteID uint `gorm:"not null;uniqueIndex:idx_group_site"`
	// Group is the associated group. Deleting a group removes its site mappings (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// Site is the associated site. Deleting a site removes its group mappings (CASCADE).
	Site Site `gorm:"foreignKey:SiteID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the mapping was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the GroupSiteMap model.
func (GroupSiteMap) TableName() string {
	return "group_site_map"
}
