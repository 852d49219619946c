package auth

import (
	"strings"

	"github.com/glasspane/glasspane/internal/db/models"
)

// RefreshGroups re-resolves a user's directory group memberships outside the
// login flow and persists the new cache. Unlike the login path this fails
// loudly: an unreachable directory returns the error instead of degrading,
// so the caller learns why the refresh did not happen. The stored cache is
// untouched on failure.
func (s *Service) RefreshGroups(loginID string) (*models.User, error) {
	var user models.User

	err := s.db.Where("uid = ?", strings.TrimSpace(loginID)).First(&user).Error
	if err != nil {
		return nil, err
	}

	if user.DN == "" {
		return nil, ErrNoDirectoryAccount
	}

	groups, err := s.dir.UserGroups(user.UID)
	if err != nil {
		return nil, err
	}

	user.CachedGroups = s.registerGroups(groups)

	if err := s.db.Save(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}
