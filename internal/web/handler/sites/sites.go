// Package sites serves the per-user portal site catalog.
package sites

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/site"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/web/handler"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
)

// Path is the base path of the site catalog API.
const Path = "/api/sites"

// Service is the site catalog handler service.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the site catalog handler.
var Handler = Service{}

// Init initializes the site catalog handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireUser, s.List)
	})

	return nil
}

type siteResponse struct {
	ID            uint     `json:"id"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	HealthURL     string   `json:"health_url,omitempty"`
	Owner         string   `json:"owner,omitempty"`
	AccessMethods []string `json:"access_methods,omitempty"`
}

// List returns the sites visible to the authenticated user.
func (s *Service) List(c *fiber.Ctx) error {
	user := authmw.CurrentUser(c)

	accessible, err := site.Accessible(s.db, user)
	if err != nil {
		log.Error().Err(err).Str("uid", user.UID).Msg("failed to load accessible sites")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	out := make([]siteResponse, 0, len(accessible))
	for _, entry := range accessible {
		out = append(out, toSiteResponse(entry))
	}

	return c.JSON(fiber.Map{"sites": out})
}

func toSiteResponse(entry models.Site) siteResponse {
	return siteResponse{
		ID:            entry.ID,
		Name:          entry.Name,
		URL:           entry.URL,
		Description:   entry.Description,
		HealthURL:     entry.HealthURL,
		Owner:         entry.Owner,
		AccessMethods: entry.AccessMethods,
	}
}
