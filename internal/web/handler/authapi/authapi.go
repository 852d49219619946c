// Package authapi implements the authentication endpoints: login, logout,
// current-session introspection and first-run admin setup.
package authapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/auth"
	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/audit"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/web/handler"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
	"github.com/glasspane/glasspane/internal/web/session"
)

const (
	// Path is the base path of the authentication API.
	Path = "/api/auth"

	minSetupPasswordLen = 8
)

// Service is the authentication API handler service.
type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	login    *auth.Service
	validate *validator.Validate
}

// Handler is the authentication API handler.
var Handler = Service{}

// Init initializes the authentication API handler. The limiter is applied to
// the login route only.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, login *auth.Service, limiter fiber.Handler) error {
	if app == nil || cfg == nil || db == nil || login == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.login = login
	s.validate = validator.New()

	app.Route(Path, func(router fiber.Router) {
		if limiter != nil {
			router.Post("/login", limiter, s.Login)
		} else {
			router.Post("/login", s.Login)
		}

		router.Post("/logout", s.Logout)
		router.Get("/me", s.Me)
		router.Get("/setup/check", s.SetupCheck)
		router.Post("/setup", s.Setup)
	})

	return nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID           uint64 `json:"id"`
	UID          string `json:"uid"`
	DisplayName  string `json:"display_name"`
	Email        string `json:"email"`
	IsLocalAdmin bool   `json:"is_local_admin"`
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:           user.ID,
		UID:          user.UID,
		DisplayName:  user.DisplayName,
		Email:        user.Email,
		IsLocalAdmin: user.IsLocalAdmin,
	}
}

// Login handles credential submission.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(loginRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed request body",
		})
	}

	result, err := s.login.Login(req.Username, req.Password, c.IP())
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrServiceUnavailable):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": auth.ErrInvalidCredentials.Error(),
			})
		}
	}

	if err := s.openSession(c, result.User, result.Roles); err != nil {
		log.Error().Err(err).Msg("failed to open session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.JSON(fiber.Map{
		"ok":    true,
		"user":  toUserResponse(result.User),
		"roles": result.Roles,
	})
}

// Logout destroys the current session. Always succeeds.
func (s *Service) Logout(c *fiber.Ctx) error {
	if sessionID := authmw.SessionID(c); sessionID != "" {
		if err := session.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}

		if user := authmw.CurrentUser(c); user != nil {
			audit.Record(s.db, &user.ID, c.IP(), audit.ActionLogout, nil)
		}
	}

	c.ClearCookie(session.CookieName)

	return c.JSON(fiber.Map{"ok": true})
}

// Me returns the authenticated user. The account state is re-read so a user
// disabled after login loses the session immediately.
func (s *Service) Me(c *fiber.Ctx) error {
	current := authmw.CurrentUser(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	var user models.User
	if err := s.db.First(&user, current.ID).Error; err != nil || user.Disabled {
		if sessionID := authmw.SessionID(c); sessionID != "" {
			if errDelete := session.Delete(sessionID); errDelete != nil {
				log.Error().Err(errDelete).Msg("failed to delete session")
			}
		}

		c.ClearCookie(session.CookieName)

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}

	roles := auth.GetUserRoles(s.db, user.ID)
	if user.IsLocalAdmin && !hasRole(roles, auth.AdminRole) {
		roles = append(roles, auth.AdminRole)
	}

	return c.JSON(fiber.Map{
		"user":  toUserResponse(&user),
		"roles": roles,
	})
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}

	return false
}

// SetupCheck reports whether first-run setup is still required.
func (s *Service) SetupCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"setup_required": !s.adminExists()})
}

type setupRequest struct {
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

// Setup creates the first local admin account and logs it in. Refused once
// any local admin exists.
func (s *Service) Setup(c *fiber.Ctx) error {
	if s.adminExists() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "setup already completed",
		})
	}

	req := new(setupRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed request body",
		})
	}

	if err := s.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "username required, password must be at least 8 characters",
		})
	}

	user := models.User{
		UID:          req.Username,
		DisplayName:  req.Username,
		PasswordHash: models.HashPassword(req.Password),
		IsLocalAdmin: true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		log.Error().Err(err).Msg("failed to create initial admin")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	audit.Record(s.db, &user.ID, c.IP(), audit.ActionAdminSetup, map[string]any{
		"username": user.UID,
	})

	roles := []string{auth.AdminRole}

	if err := s.openSession(c, &user, roles); err != nil {
		log.Error().Err(err).Msg("failed to open session")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":    true,
		"user":  toUserResponse(&user),
		"roles": roles,
	})
}

func (s *Service) adminExists() bool {
	var count int64

	err := s.db.Model(&models.User{}).Where("is_local_admin = ?", true).Count(&count).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to count local admins")

		// Fail closed: setup stays locked when the check is inconclusive.
		return true
	}

	return count > 0
}

func (s *Service) openSession(c *fiber.Ctx, user *models.User, roles []string) error {
	sessionID := session.GenerateSessionID()

	sessData := &session.Data{User: *user, Roles: roles}

	expiry := s.cfg.Webserver.Session.ExpiryTime
	if err := sessData.Write(sessionID, expiry); err != nil {
		return err
	}

	cookie := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(expiry.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookie.Secure = false
	}

	c.Cookie(cookie)

	return nil
}
