package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/web/session"
)

// Keys used in fiber locals.
const (
	CurrentUserKey  = "CurrentUser"
	CurrentRolesKey = "CurrentRoles"
	SessionIDKey    = "SessionID"
)

// AdminRole grants access to the administrator surface.
const AdminRole = "admin"

// Middleware resolves the session cookie into the current user. Requests
// without a valid session pass through unauthenticated.
func Middleware(c *fiber.Ctx) error {
	sessionID := c.Cookies(session.CookieName)
	if sessionID == "" {
		return c.Next()
	}

	sessData := new(session.Data)
	if err := sessData.Read(sessionID); err != nil {
		return c.Next()
	}

	if sessData.User.ID > 0 {
		c.Locals(CurrentUserKey, &sessData.User)
		c.Locals(CurrentRolesKey, sessData.Roles)
		c.Locals(SessionIDKey, sessionID)
	}

	return c.Next()
}

// CurrentUser returns the authenticated user for the request, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(CurrentUserKey).(*models.User)

	return user
}

// Roles returns the session's role names.
func Roles(c *fiber.Ctx) []string {
	roles, _ := c.Locals(CurrentRolesKey).([]string)

	return roles
}

// SessionID returns the request's session ID, or empty.
func SessionID(c *fiber.Ctx) string {
	sessionID, _ := c.Locals(SessionIDKey).(string)

	return sessionID
}

// RequireUser rejects unauthenticated requests. A session belonging to a
// user disabled after login is destroyed on sight.
func RequireUser(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return unauthorized(c)
	}

	if user.Disabled {
		destroySession(c)

		return unauthorized(c)
	}

	return c.Next()
}

// RequireAdmin rejects requests lacking the admin role.
func RequireAdmin(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return unauthorized(c)
	}

	if user.Disabled {
		destroySession(c)

		return unauthorized(c)
	}

	if user.IsLocalAdmin || hasRole(Roles(c), AdminRole) {
		return c.Next()
	}

	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": "administrator access required",
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

func destroySession(c *fiber.Ctx) {
	if sessionID := SessionID(c); sessionID != "" {
		if err := session.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.ClearCookie(session.CookieName)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "authentication required",
	})
}
