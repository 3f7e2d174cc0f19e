// Package groups implements the group management routes: creation,
// membership administration and permission toggles.
package groups

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/group"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/policy"
	"github.com/robsoninsights/robsoninsights/internal/web/handler"
	"github.com/robsoninsights/robsoninsights/internal/web/middleware/auth"
)

// Path is the base path of the groups route group.
const Path = handler.APIPrefix + "/groups"

// Service is the groups handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the groups handler.
var Handler = Service{}

type createRequest struct {
	Name string `json:"name" validate:"required"`
}

type memberRequest struct {
	Username string `json:"username" validate:"required"`
}

type permissionsRequest struct {
	Username string `json:"username" validate:"required"`
	CanView  bool   `json:"can_view"`
}

type memberResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	CanAdd   bool   `json:"can_add"`
	CanView  bool   `json:"can_view"`
}

// Init initializes the groups handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Get(Path+"/viewable", s.ListViewable)
	app.Post(Path, s.Create)
	app.Get(Path+"/:id", s.Get)
	app.Get(Path+"/:id/members", s.Members)
	app.Post(Path+"/:id/members", s.AddMember)
	app.Delete(Path+"/:id/members/:username", s.RemoveMember)
	app.Post(Path+"/:id/leave", s.Leave)
	app.Put(Path+"/:id/admin", s.ChangeAdmin)
	app.Put(Path+"/:id/permissions", s.TogglePermissions)
}

// List returns every group the caller belongs to.
func (s *Service) List(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groups, err := group.ListForUser(s.db, user.ID)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(groups)
}

// ListViewable returns the groups the caller may read entries from.
func (s *Service) ListViewable(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groups, err := group.ViewableForUser(s.db, user.ID)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(groups)
}

// Create makes a new group with the caller as its administrator.
func (s *Service) Create(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	g, err := group.Create(s.db, user.ID, req.Name)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(g)
}

// Get returns a single group the caller may view.
func (s *Service) Get(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	ok, err := policy.CanViewGroup(s.db, user.ID, groupID)
	if err != nil {
		return handler.Err(c, err)
	}

	if !ok {
		return fiber.ErrForbidden
	}

	g, err := group.Get(s.db, groupID)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(g)
}

// Members returns the membership roster of a group the caller may view.
func (s *Service) Members(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	ok, err := policy.CanViewGroup(s.db, user.ID, groupID)
	if err != nil {
		return handler.Err(c, err)
	}

	if !ok {
		return fiber.ErrForbidden
	}

	members, err := group.MembersOf(s.db, groupID)
	if err != nil {
		return handler.Err(c, err)
	}

	out := make([]memberResponse, 0, len(members))
	for i := range members {
		out = append(out, toMemberResponse(&members[i]))
	}

	return c.JSON(out)
}

// AddMember adds a user to the group by username. Admin only.
func (s *Service) AddMember(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	var req memberRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	created, err := group.AddUser(s.db, user.ID, req.Username, groupID)
	if err != nil {
		return handler.Err(c, err)
	}

	if !created {
		return c.JSON(fiber.Map{"detail": "user is already a member"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"detail": "user added"})
}

// RemoveMember removes a user from the group. Admin only.
func (s *Service) RemoveMember(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	if err = group.RemoveUser(s.db, user.ID, c.Params("username"), groupID); err != nil {
		return handler.Err(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Leave removes the caller's own membership.
func (s *Service) Leave(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	if err = group.Leave(s.db, user.ID, groupID); err != nil {
		return handler.Err(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ChangeAdmin hands the admin role to another member. Admin only.
func (s *Service) ChangeAdmin(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	var req memberRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err = group.ChangeAdmin(s.db, user.ID, groupID, req.Username); err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(fiber.Map{"detail": "admin changed"})
}

// TogglePermissions flips a member's entry permissions. Admin only.
func (s *Service) TogglePermissions(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	groupID, err := parseID(c)
	if err != nil {
		return err
	}

	var req permissionsRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err = s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err = group.TogglePermissions(s.db, user.ID, groupID, req.Username, req.CanView); err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(fiber.Map{"detail": "permissions updated"})
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid group id")
	}

	return uint(id), nil
}

func toMemberResponse(m *models.Membership) memberResponse {
	return memberResponse{
		ID:       m.User.ID,
		Username: m.User.Username,
		Email:    m.User.Email,
		IsAdmin:  m.IsAdmin,
		CanAdd:   m.CanAdd,
		CanView:  m.CanView,
	}
}
