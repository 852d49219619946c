// Package site provides catalog queries for portal sites.
package site

import (
	"errors"

	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/db/controller/groupsync"
	"github.com/glasspane/glasspane/internal/db/models"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Accessible returns the visible sites the user may see: those mapped to any
// of the user's cached groups. Local admins see every visible site. Disabled
// users see nothing.
func Accessible(db *gorm.DB, user *models.User) ([]models.Site, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if user == nil || user.Disabled {
		return nil, nil
	}

	if user.IsLocalAdmin {
		var sites []models.Site
		if err := db.Where("visible = ?", true).Order("name").Find(&sites).Error; err != nil {
			return nil, err
		}

		return sites, nil
	}

	groups, err := groupsync.MatchByDN(db, user.CachedGroups)
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 {
		return nil, nil
	}

	groupIDs := make([]uint, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	var mappings []models.GroupSiteMap
	if err := db.Where("group_id IN ?", groupIDs).Find(&mappings).Error; err != nil {
		return nil, err
	}

	if len(mappings) == 0 {
		return nil, nil
	}

	siteIDs := make([]uint, 0, len(mappings))
	for _, m := range mappings {
		siteIDs = append(siteIDs, m.SiteID)
	}

	var sites []models.Site

	err = db.Where("id IN ? AND visible = ?", siteIDs, true).
		Order("name").
		Find(&sites).Error
	if err != nil {
		return nil, err
	}

	return sites, nil
}
