package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/models"
)

// seed provisions the initial local admin account when none exists and the
// configuration supplies credentials. The password is hashed at seed time;
// an account without a hash can never log in through the local fallback.
func seed(cfg *config.Config, db *gorm.DB) {
	var count int64

	if err := db.Model(&models.User{}).Where("is_local_admin = ?", true).Count(&count).Error; err != nil {
		log.Error().Err(err).Msg("failed to count local admins, skipping seed")

		return
	}

	if count > 0 {
		return
	}

	if cfg.Auth.InitialAdminUsername == "" || cfg.Auth.InitialAdminPassword == "" {
		log.Info().Msg("no local admin exists and no initial admin configured, first-run setup required")

		return
	}

	admin := models.User{
		UID:          cfg.Auth.InitialAdminUsername,
		DisplayName:  cfg.Auth.InitialAdminUsername,
		PasswordHash: models.HashPassword(cfg.Auth.InitialAdminPassword),
		IsLocalAdmin: true,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed initial admin")

		return
	}

	log.Info().Str("uid", admin.UID).Msg("seeded initial local admin")
}
