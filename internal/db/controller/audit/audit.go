// Package audit records security events. Writes are best-effort: the portal
// never fails an operation because its audit trail could not be written.
package audit

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/db/models"
)

// Action names recorded by the portal.
const (
	ActionLoginSuccess = "login_success"
	ActionLoginFailed  = "login_failed"
	ActionLogout       = "logout"
	ActionAdminSetup   = "admin_setup"
	ActionConfigChange = "directory_config_change"
	ActionPolicyChange = "webapp_config_change"
	ActionUserChange   = "user_change"
	ActionUserRefresh  = "user_groups_refresh"
)

// Record writes one audit event. Failures are logged and swallowed.
func Record(db *gorm.DB, userID *uint64, ip, action string, details map[string]any) {
	if db == nil {
		return
	}

	event := models.AuditLog{
		UserID:  userID,
		IP:      ip,
		Action:  action,
		Details: details,
	}

	if err := db.Create(&event).Error; err != nil {
		log.Error().Err(err).Str("action", action).Msg("failed to write audit event")
	}
}
