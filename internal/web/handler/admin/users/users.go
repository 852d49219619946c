// Package users implements the administrator endpoints for portal user
// accounts: listing accounts, toggling the disabled and local-admin flags
// and refreshing a user's cached directory group memberships outside the
// login flow.
package users

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/auth"
	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/audit"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/directory"
	"github.com/glasspane/glasspane/internal/web/handler"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
)

// Path is the base path of the user administration API.
const Path = "/api/admin/users"

// Service is the user administration handler service.
type Service struct {
	cfg   *config.Config
	db    *gorm.DB
	login *auth.Service
}

// Handler is the user administration handler.
var Handler = Service{}

// Init initializes the user administration handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, login *auth.Service) error {
	if app == nil || cfg == nil || db == nil || login == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.login = login

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireAdmin, s.List)
		router.Put("/:id", authmw.RequireAdmin, s.Update)
		router.Post("/:id/refresh", authmw.RequireAdmin, s.Refresh)
	})

	return nil
}

type userResponse struct {
	ID           uint64     `json:"id"`
	UID          string     `json:"uid"`
	DisplayName  string     `json:"display_name"`
	Email        string     `json:"email"`
	IsLocalAdmin bool       `json:"is_local_admin"`
	Disabled     bool       `json:"disabled"`
	CachedGroups []string   `json:"cached_groups"`
	LastLogin    *time.Time `json:"last_login"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:           user.ID,
		UID:          user.UID,
		DisplayName:  user.DisplayName,
		Email:        user.Email,
		IsLocalAdmin: user.IsLocalAdmin,
		Disabled:     user.Disabled,
		CachedGroups: user.CachedGroups,
		LastLogin:    user.LastLogin,
	}
}

// List returns all user accounts ordered by login id.
func (s *Service) List(c *fiber.Ctx) error {
	var accounts []models.User
	if err := s.db.Order("uid").Find(&accounts).Error; err != nil {
		return internalError(c, err, "failed to list users")
	}

	out := make([]userResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toUserResponse(&accounts[i]))
	}

	return c.JSON(fiber.Map{"users": out})
}

type updateRequest struct {
	Disabled     *bool `json:"disabled"`
	IsLocalAdmin *bool `json:"is_local_admin"`
}

// Update toggles the account flags. Administrators cannot disable their own
// account or revoke their own local-admin flag, so the last working admin
// cannot lock everyone out.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid user id")
	}

	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return notFound(c, "user not found")
	}

	req := new(updateRequest)
	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "malformed request body")
	}

	acting := authmw.CurrentUser(c)

	if acting != nil && acting.ID == user.ID {
		if req.Disabled != nil && *req.Disabled {
			return badRequest(c, "cannot disable your own account")
		}

		if req.IsLocalAdmin != nil && !*req.IsLocalAdmin && user.IsLocalAdmin {
			return badRequest(c, "cannot revoke your own administrator flag")
		}
	}

	if req.Disabled != nil {
		user.Disabled = *req.Disabled
	}

	if req.IsLocalAdmin != nil {
		user.IsLocalAdmin = *req.IsLocalAdmin
	}

	if err := s.db.Save(&user).Error; err != nil {
		return internalError(c, err, "failed to update user")
	}

	if acting != nil {
		audit.Record(s.db, &acting.ID, c.IP(), audit.ActionUserChange, map[string]any{
			"uid":            user.UID,
			"disabled":       user.Disabled,
			"is_local_admin": user.IsLocalAdmin,
		})
	}

	return c.JSON(toUserResponse(&user))
}

// Refresh re-resolves the user's directory group memberships and replaces
// the cached set, without requiring the user to log in again.
func (s *Service) Refresh(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid user id")
	}

	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return notFound(c, "user not found")
	}

	refreshed, err := s.login.RefreshGroups(user.UID)

	switch {
	case errors.Is(err, auth.ErrNoDirectoryAccount):
		return badRequest(c, "account has no directory identity")
	case directory.IsConnectionError(err):
		log.Warn().Err(err).Str("uid", user.UID).Msg("group refresh failed, directory unavailable")

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "directory unavailable",
		})
	case err != nil:
		return internalError(c, err, "failed to refresh user groups")
	}

	if acting := authmw.CurrentUser(c); acting != nil {
		audit.Record(s.db, &acting.ID, c.IP(), audit.ActionUserRefresh, map[string]any{
			"uid":    refreshed.UID,
			"groups": len(refreshed.CachedGroups),
		})
	}

	return c.JSON(fiber.Map{"ok": true, "user": toUserResponse(refreshed)})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func internalError(c *fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Msg(msg)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}
