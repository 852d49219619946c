// Package directory implements the administrator endpoints for the
// directory connection: reading and updating the persisted override and
// probing connectivity. The stored bind password never leaves the server;
// outward representations carry a mask instead.
package directory

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/audit"
	"github.com/glasspane/glasspane/internal/db/models"
	dirsvc "github.com/glasspane/glasspane/internal/directory"
	"github.com/glasspane/glasspane/internal/web/handler"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
)

// Path is the base path of the directory administration API.
const Path = "/api/admin/directory"

// Service is the directory administration handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	dir *dirsvc.Service
}

// Handler is the directory administration handler.
var Handler = Service{}

// Init initializes the directory administration handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, dir *dirsvc.Service) error {
	if app == nil || cfg == nil || db == nil || dir == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.dir = dir

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireAdmin, s.Get)
		router.Put(handler.RootPath, authmw.RequireAdmin, s.Put)
		router.Get("/test", authmw.RequireAdmin, s.TestConnection)
		router.Post("/test-bind", authmw.RequireAdmin, s.TestBind)
	})

	return nil
}

type configResponse struct {
	URL            string `json:"url"`
	UseTLS         bool   `json:"use_tls"`
	BindDN         string `json:"bind_dn"`
	BindPassword   string `json:"bind_password"`
	BaseDN         string `json:"base_dn"`
	UserDN         string `json:"user_dn"`
	GroupDN        string `json:"group_dn"`
	UserFilter     string `json:"user_filter"`
	GroupFilter    string `json:"group_filter"`
	GroupAttribute string `json:"group_attribute"`
	CACertPath     string `json:"ca_cert_path"`
	SearchTimeout  int    `json:"search_timeout"`
	Enabled        bool   `json:"enabled"`
	Source         string `json:"source"`
}

// Get returns the effective directory configuration with the bind password
// masked.
func (s *Service) Get(c *fiber.Ctx) error {
	cfg := s.dir.Resolve()

	enabled := true
	if cfg.Source == dirsvc.SourceDatabase {
		var record models.DirectoryConfig
		if err := s.db.First(&record, models.DirectoryConfigID).Error; err == nil {
			enabled = record.Enabled
		}
	}

	password := ""
	if cfg.BindPassword != "" {
		password = handler.MaskedSecret
	}

	return c.JSON(configResponse{
		URL:            cfg.URL,
		UseTLS:         cfg.UseTLS,
		BindDN:         cfg.BindDN,
		BindPassword:   password,
		BaseDN:         cfg.BaseDN,
		UserDN:         cfg.UserDN,
		GroupDN:        cfg.GroupDN,
		UserFilter:     cfg.UserFilter,
		GroupFilter:    cfg.GroupFilter,
		GroupAttribute: cfg.GroupAttribute,
		CACertPath:     cfg.CACert,
		SearchTimeout:  cfg.SearchTimeout,
		Enabled:        enabled,
		Source:         cfg.Source,
	})
}

type configRequest struct {
	URL            string `json:"url"`
	UseTLS         *bool  `json:"use_tls"`
	BindDN         string `json:"bind_dn"`
	BindPassword   string `json:"bind_password"`
	BaseDN         string `json:"base_dn"`
	UserDN         string `json:"user_dn"`
	GroupDN        string `json:"group_dn"`
	UserFilter     string `json:"user_filter"`
	GroupFilter    string `json:"group_filter"`
	GroupAttribute string `json:"group_attribute"`
	CACertPath     string `json:"ca_cert_path"`
	SearchTimeout  int    `json:"search_timeout"`
	Enabled        *bool  `json:"enabled"`
}

// Put replaces the persisted directory override. A masked or empty bind
// password keeps the stored secret.
func (s *Service) Put(c *fiber.Ctx) error {
	req := new(configRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed request body",
		})
	}

	var record models.DirectoryConfig

	err := s.db.First(&record, models.DirectoryConfigID).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Fresh records require TLS unless explicitly opted out.
		if req.UseTLS == nil {
			record.UseTLS = true
		}
	case err != nil:
		log.Error().Err(err).Msg("failed to load directory config record")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	record.ID = models.DirectoryConfigID
	record.URL = strings.TrimSpace(req.URL)
	record.BindDN = req.BindDN
	record.BaseDN = req.BaseDN
	record.UserDN = req.UserDN
	record.GroupDN = req.GroupDN
	record.UserFilter = req.UserFilter
	record.GroupFilter = req.GroupFilter
	record.GroupAttribute = req.GroupAttribute
	record.CACertPath = req.CACertPath
	record.SearchTimeout = req.SearchTimeout

	if req.UseTLS != nil {
		record.UseTLS = *req.UseTLS
	}

	if req.Enabled != nil {
		record.Enabled = *req.Enabled
	}

	// A mask means "keep the stored secret".
	if req.BindPassword != "" && req.BindPassword != handler.MaskedSecret {
		record.BindPassword = req.BindPassword
	}

	if record.Enabled {
		if msg := validateEnabled(&record); msg != "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
		}
	}

	if err := s.db.Save(&record).Error; err != nil {
		log.Error().Err(err).Msg("failed to save directory config record")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if admin := authmw.CurrentUser(c); admin != nil {
		audit.Record(s.db, &admin.ID, c.IP(), audit.ActionConfigChange, map[string]any{
			"url":     record.URL,
			"enabled": record.Enabled,
			"use_tls": record.UseTLS,
		})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// validateEnabled returns a client-facing message when an enabled override
// is not usable.
func validateEnabled(record *models.DirectoryConfig) string {
	if record.URL == "" {
		return "url is required when the directory is enabled"
	}

	if !strings.HasPrefix(record.URL, "ldap://") && !strings.HasPrefix(record.URL, "ldaps://") {
		return "url must start with ldap:// or ldaps://"
	}

	if record.BaseDN == "" && record.UserDN == "" {
		return "base_dn or user_dn is required when the directory is enabled"
	}

	if record.UseTLS && record.CACertPath == "" {
		return "ca_cert_path is required when use_tls is set"
	}

	return ""
}

// TestConnection probes the effective configuration with an anonymous
// connection. Administrator-only: the response carries raw directory
// diagnostics.
func (s *Service) TestConnection(c *fiber.Ctx) error {
	if err := s.dir.TestConnection(); err != nil {
		return c.JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"ok": true})
}

type testBindRequest struct {
	BindDN       string `json:"bind_dn"`
	BindPassword string `json:"bind_password"`
}

// TestBind probes a service account bind, defaulting to the configured
// identity. Administrator-only: the response carries raw directory
// diagnostics.
func (s *Service) TestBind(c *fiber.Ctx) error {
	req := new(testBindRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed request body",
		})
	}

	if err := s.dir.TestBind(req.BindDN, req.BindPassword); err != nil {
		return c.JSON(fiber.Map{"ok": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"ok": true})
}
