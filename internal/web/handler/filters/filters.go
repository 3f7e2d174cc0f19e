// Package filters implements the saved filter routes.
package filters

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/filterconfig"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/web/handler"
	"github.com/robsoninsights/robsoninsights/internal/web/middleware/auth"
)

// Path is the base path of the filters route group.
const Path = handler.APIPrefix + "/filters"

// Service is the filters handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the filters handler.
var Handler = Service{}

type createRequest struct {
	Name     string `json:"name" validate:"required"`
	GroupIDs []uint `json:"group_ids"`
}

type groupRequest struct {
	GroupID uint `json:"group_id" validate:"required"`
}

type groupSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type filterResponse struct {
	ID     uint           `json:"id"`
	Name   string         `json:"name"`
	Groups []groupSummary `json:"groups"`
}

func toResponse(f *models.Filter) filterResponse {
	out := filterResponse{
		ID:     f.ID,
		Name:   f.Name,
		Groups: make([]groupSummary, 0, len(f.Groups)),
	}

	for _, g := range f.Groups {
		out.Groups = append(out.Groups, groupSummary{ID: g.ID, Name: g.Name})
	}

	return out
}

// Init initializes the filters handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Post(Path, s.Create)
	app.Get(Path+"/:id", s.Get)
	app.Post(Path+"/:id/groups", s.AddGroup)
	app.Delete(Path+"/:id/groups/:groupID", s.RemoveGroup)
	app.Delete(Path+"/:id", s.Delete)
}

// List returns the caller's saved filters.
func (s *Service) List(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	found, err := filterconfig.ListForUser(s.db, user.ID)
	if err != nil {
		return handler.Err(c, err)
	}

	out := make([]filterResponse, 0, len(found))
	for i := range found {
		out = append(out, toResponse(&found[i]))
	}

	return c.JSON(out)
}

// Create makes a new saved filter owned by the caller.
func (s *Service) Create(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	f, err := filterconfig.Create(s.db, user.ID, req.Name, req.GroupIDs)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(f))
}

// Get returns one of the caller's saved filters.
func (s *Service) Get(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	f, err := filterconfig.Get(s.db, user.ID, id)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(toResponse(f))
}

// AddGroup adds a group to the filter's set.
func (s *Service) AddGroup(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req groupRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err = filterconfig.AddGroup(s.db, user.ID, id, req.GroupID); err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(fiber.Map{"detail": "group added"})
}

// RemoveGroup removes a group from the filter's set.
func (s *Service) RemoveGroup(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	groupID, err := parseID(c, "groupID")
	if err != nil {
		return err
	}

	if err = filterconfig.RemoveGroup(s.db, user.ID, id, groupID); err != nil {
		return handler.Err(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Delete removes a saved filter.
func (s *Service) Delete(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err = filterconfig.Delete(s.db, user.ID, id); err != nil {
		return handler.Err(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}

	return uint(id), nil
}
