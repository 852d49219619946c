// Package webappconfig implements the administrator endpoints for the
// portal-level policy flags: the local fallback switch and proxy host
// validation, plus the portal title. The persisted record wins over the
// environment defaults once it exists.
package webappconfig

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/audit"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/web/handler"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
)

// Path is the base path of the webapp configuration API.
const Path = "/api/admin/webapp-config"

// Service is the webapp configuration handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the webapp configuration handler.
var Handler = Service{}

// Init initializes the webapp configuration handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireAdmin, s.Get)
		router.Put(handler.RootPath, authmw.RequireAdmin, s.Put)
	})

	return nil
}

type configResponse struct {
	AppTitle                   string `json:"app_title"`
	LocalFallbackEnabled       bool   `json:"local_fallback_enabled"`
	ProxyHostValidationEnabled bool   `json:"proxy_host_validation_enabled"`
	Source                     string `json:"source"`
}

// Get returns the effective policy flags: the persisted record when it
// exists, the environment defaults otherwise.
func (s *Service) Get(c *fiber.Ctx) error {
	var record models.WebAppConfig

	err := s.db.First(&record, models.WebAppConfigID).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.JSON(configResponse{
			AppTitle:             s.cfg.Title,
			LocalFallbackEnabled: s.cfg.Auth.AllowLocalFallback,
			Source:               "environment",
		})
	case err != nil:
		return internalError(c, err, "failed to load webapp config record")
	}

	return c.JSON(configResponse{
		AppTitle:                   record.AppTitle,
		LocalFallbackEnabled:       record.LocalFallbackEnabled,
		ProxyHostValidationEnabled: record.ProxyHostValidationEnabled,
		Source:                     "database",
	})
}

type configRequest struct {
	AppTitle                   *string `json:"app_title"`
	LocalFallbackEnabled       *bool   `json:"local_fallback_enabled"`
	ProxyHostValidationEnabled *bool   `json:"proxy_host_validation_enabled"`
}

// Put upserts the policy record. Fields absent from the request keep their
// stored value; a fresh record starts from the environment defaults so an
// unset field never silently flips a policy.
func (s *Service) Put(c *fiber.Ctx) error {
	req := new(configRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed request body",
		})
	}

	var record models.WebAppConfig

	err := s.db.First(&record, models.WebAppConfigID).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.WebAppConfig{
			ID:                   models.WebAppConfigID,
			AppTitle:             s.cfg.Title,
			LocalFallbackEnabled: s.cfg.Auth.AllowLocalFallback,
		}
	case err != nil:
		return internalError(c, err, "failed to load webapp config record")
	}

	if req.AppTitle != nil {
		record.AppTitle = *req.AppTitle
	}

	if req.LocalFallbackEnabled != nil {
		record.LocalFallbackEnabled = *req.LocalFallbackEnabled
	}

	if req.ProxyHostValidationEnabled != nil {
		record.ProxyHostValidationEnabled = *req.ProxyHostValidationEnabled
	}

	if err := s.db.Save(&record).Error; err != nil {
		return internalError(c, err, "failed to save webapp config record")
	}

	if admin := authmw.CurrentUser(c); admin != nil {
		audit.Record(s.db, &admin.ID, c.IP(), audit.ActionPolicyChange, map[string]any{
			"local_fallback_enabled":        record.LocalFallbackEnabled,
			"proxy_host_validation_enabled": record.ProxyHostValidationEnabled,
		})
	}

	return c.JSON(configResponse{
		AppTitle:                   record.AppTitle,
		LocalFallbackEnabled:       record.LocalFallbackEnabled,
		ProxyHostValidationEnabled: record.ProxyHostValidationEnabled,
		Source:                     "database",
	})
}

func internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
