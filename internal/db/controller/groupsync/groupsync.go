// Package groupsync maintains the local cache of directory groups.
package groupsync

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glasspane/glasspane/internal/db/models"
)

var (
	// ErrEmptyDN is returned when a group identifier is empty after trimming.
	ErrEmptyDN = errors.New("group DN cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Sync upserts an observed directory group by its DN. A new group is created
// with the provided metadata; an existing group only has the supplied
// metadata fields updated and its last-seen timestamp refreshed. Omitted
// fields are never blanked.
//
// The upsert is a single atomic statement so concurrent logins racing to
// sync the same DN neither deadlock nor duplicate rows.
func Sync(db *gorm.DB, dn, cn, description string) (*models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	dn = strings.TrimSpace(dn)
	if dn == "" {
		return nil, ErrEmptyDN
	}

	now := time.Now()

	assignments := map[string]any{"last_seen": now}
	if cn != "" {
		assignments["cn"] = cn
	}

	if description != "" {
		assignments["description"] = description
	}

	group := models.Group{
		DN:          dn,
		CN:          cn,
		Description: description,
		LastSeen:    now,
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dn"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&group).Error
	if err != nil {
		return nil, err
	}

	// Reload so the caller always sees the canonical row; the insert path
	// does not refresh all fields on a conflict across dialects.
	if err := db.Where("dn = ?", dn).First(&group).Error; err != nil {
		return nil, err
	}

	return &group, nil
}

// MatchByDN resolves cached groups for a list of DNs: an exact (case
// sensitive) set lookup first, then one case-insensitive lookup per
// remaining DN. The directory is authoritative on casing, so storage is
// never normalized; the fallback exists because attribute casing varies
// between directory servers.
func MatchByDN(db *gorm.DB, dns []string) ([]models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	trimmed := make([]string, 0, len(dns))

	for _, dn := range dns {
		if dn = strings.TrimSpace(dn); dn != "" {
			trimmed = append(trimmed, dn)
		}
	}

	if len(trimmed) == 0 {
		return nil, nil
	}

	var groups []models.Group
	if err := db.Where("dn IN ?", trimmed).Find(&groups).Error; err != nil {
		return nil, err
	}

	matched := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		matched[g.DN] = struct{}{}
	}

	for _, dn := range trimmed {
		if _, ok := matched[dn]; ok {
			continue
		}

		var group models.Group

		err := db.Where("LOWER(dn) = LOWER(?)", dn).First(&group).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		groups = append(groups, group)
	}

	return groups, nil
}

// List returns all cached groups ordered by DN.
func List(db *gorm.DB) ([]models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var groups []models.Group
	if err := db.Order("dn").Find(&groups).Error; err != nil {
		return nil, err
	}

	return groups, nil
}
