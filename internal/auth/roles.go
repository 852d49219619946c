package auth

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/db/controller/groupsync"
	"github.com/glasspane/glasspane/internal/db/models"
)

// AdminRole is the role name granted implicitly to local admin accounts.
const AdminRole = "admin"

// GetUserRoles maps a user's cached group DNs to role names via the local
// group→role mapping table. Group DNs are matched exactly first, then once
// case-insensitively per remaining DN. Never fails: a disabled or unknown
// user, and any lookup error, yields an empty list.
func GetUserRoles(db *gorm.DB, userID uint64) []string {
	var user models.User

	if err := db.First(&user, userID).Error; err != nil {
		log.Debug().Uint64("user_id", userID).Err(err).Msg("role lookup: user not found")

		return []string{}
	}

	if user.Disabled {
		return []string{}
	}

	groups, err := groupsync.MatchByDN(db, user.CachedGroups)
	if err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("role lookup: group match failed")

		return []string{}
	}

	if len(groups) == 0 {
		return []string{}
	}

	groupIDs := make([]uint, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	var mappings []models.RoleMapping
	if err := db.Where("group_id IN ?", groupIDs).Find(&mappings).Error; err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("role lookup: mapping query failed")

		return []string{}
	}

	roleIDSet := make(map[uint]struct{}, len(mappings))
	roleIDs := make([]uint, 0, len(mappings))

	for _, m := range mappings {
		if _, dup := roleIDSet[m.RoleID]; dup {
			continue
		}

		roleIDSet[m.RoleID] = struct{}{}

		roleIDs = append(roleIDs, m.RoleID)
	}

	if len(roleIDs) == 0 {
		log.Debug().Str("uid", user.UID).Int("groups", len(groups)).
			Msg("role lookup: matched groups carry no role mappings")

		return []string{}
	}

	var roles []models.Role
	if err := db.Where("id IN ?", roleIDs).Order("name").Find(&roles).Error; err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("role lookup: role query failed")

		return []string{}
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}

	return names
}
