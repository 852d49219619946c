// Package mapping implements the administrator endpoints for roles, cached
// directory groups and the group→role mappings that drive authorization.
package mapping

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/controller/groupsync"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/web/handler"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
)

// Base paths of the mapping administration API.
const (
	RolesPath    = "/api/admin/roles"
	GroupsPath   = "/api/admin/groups"
	MappingsPath = "/api/admin/role-mappings"
)

// Service is the mapping administration handler service.
type Service struct {
	cfg      *config.Config
	db       *gorm.DB
	validate *validator.Validate
}

// Handler is the mapping administration handler.
var Handler = Service{}

// Init initializes the mapping administration handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.validate = validator.New()

	app.Route(RolesPath, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireAdmin, s.ListRoles)
		router.Post(handler.RootPath, authmw.RequireAdmin, s.CreateRole)
		router.Delete("/:id", authmw.RequireAdmin, s.DeleteRole)
	})

	app.Route(GroupsPath, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireAdmin, s.ListGroups)
	})

	app.Route(MappingsPath, func(router fiber.Router) {
		router.Get(handler.RootPath, authmw.RequireAdmin, s.ListMappings)
		router.Post(handler.RootPath, authmw.RequireAdmin, s.CreateMapping)
		router.Delete("/:id", authmw.RequireAdmin, s.DeleteMapping)
	})

	return nil
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(c *fiber.Ctx) error {
	var roles []models.Role
	if err := s.db.Order("name").Find(&roles).Error; err != nil {
		return internalError(c, err, "failed to list roles")
	}

	return c.JSON(fiber.Map{"roles": roles})
}

type roleRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"max=255"`
}

// CreateRole creates a new role.
func (s *Service) CreateRole(c *fiber.Ctx) error {
	req := new(roleRequest)
	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "malformed request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, "role name is required (max 64 characters)")
	}

	role := models.Role{Name: req.Name, Description: req.Description}
	if err := s.db.Create(&role).Error; err != nil {
		// Unique constraint on the name.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "role already exists",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

// DeleteRole removes a role and its mappings.
func (s *Service) DeleteRole(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid role id")
	}

	var role models.Role
	if err := s.db.First(&role, id).Error; err != nil {
		return notFound(c, "role not found")
	}

	// Mappings cascade on delete at the schema level; delete explicitly as
	// well for backends without enforced foreign keys.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RoleMapping{}).Error; err != nil {
			return err
		}

		return tx.Delete(&role).Error
	})
	if err != nil {
		return internalError(c, err, "failed to delete role")
	}

	return c.JSON(fiber.Map{"ok": true})
}

// ListGroups returns all cached directory groups ordered by DN.
func (s *Service) ListGroups(c *fiber.Ctx) error {
	groups, err := groupsync.List(s.db)
	if err != nil {
		return internalError(c, err, "failed to list groups")
	}

	return c.JSON(fiber.Map{"groups": groups})
}

type mappingResponse struct {
	ID       uint   `json:"id"`
	GroupID  uint   `json:"group_id"`
	GroupDN  string `json:"group_dn"`
	RoleID   uint   `json:"role_id"`
	RoleName string `json:"role_name"`
}

// ListMappings returns all group→role mappings with their group and role
// names resolved.
func (s *Service) ListMappings(c *fiber.Ctx) error {
	var mappings []models.RoleMapping
	if err := s.db.Preload("Group").Preload("Role").Find(&mappings).Error; err != nil {
		return internalError(c, err, "failed to list role mappings")
	}

	out := make([]mappingResponse, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, mappingResponse{
			ID:       m.ID,
			GroupID:  m.GroupID,
			GroupDN:  m.Group.DN,
			RoleID:   m.RoleID,
			RoleName: m.Role.Name,
		})
	}

	return c.JSON(fiber.Map{"mappings": out})
}

type mappingRequest struct {
	GroupDN string `json:"group_dn" validate:"required,min=1,max=1024"`
	RoleID  uint   `json:"role_id" validate:"required"`
}

// CreateMapping maps a directory group to a role. The group does not need
// to be cached yet: it is registered by DN on the spot, so administrators
// can prepare mappings before the first member ever logs in.
func (s *Service) CreateMapping(c *fiber.Ctx) error {
	req := new(mappingRequest)
	if err := c.BodyParser(req); err != nil {
		return badRequest(c, "malformed request body")
	}

	req.GroupDN = strings.TrimSpace(req.GroupDN)
	if err := s.validate.Struct(req); err != nil {
		return badRequest(c, "group_dn and role_id are required")
	}

	var role models.Role
	if err := s.db.First(&role, req.RoleID).Error; err != nil {
		return notFound(c, "role not found")
	}

	group, err := groupsync.Sync(s.db, req.GroupDN, "", "")
	if err != nil {
		return internalError(c, err, "failed to register group")
	}

	mapping := models.RoleMapping{GroupID: group.ID, RoleID: role.ID}

	err = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&mapping).Error
	if err != nil {
		return internalError(c, err, "failed to create role mapping")
	}

	return c.Status(fiber.StatusCreated).JSON(mappingResponse{
		ID:       mapping.ID,
		GroupID:  group.ID,
		GroupDN:  group.DN,
		RoleID:   role.ID,
		RoleName: role.Name,
	})
}

// DeleteMapping removes one group→role mapping.
func (s *Service) DeleteMapping(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return badRequest(c, "invalid mapping id")
	}

	result := s.db.Delete(&models.RoleMapping{}, id)
	if result.Error != nil {
		return internalError(c, result.Error, "failed to delete role mapping")
	}

	if result.RowsAffected == 0 {
		return notFound(c, "mapping not found")
	}

	return c.JSON(fiber.Map{"ok": true})
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
