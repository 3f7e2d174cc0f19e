// Package invites implements the invitation routes: issuing single and
// bulk invitations, public token lookup, accept and reject.
package invites

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/invite"
	"github.com/robsoninsights/robsoninsights/internal/web/handler"
	"github.com/robsoninsights/robsoninsights/internal/web/middleware/auth"
)

// Path is the base path of the invites route group.
const Path = handler.APIPrefix + "/invites"

// Service is the invites handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	invites   *invite.Service
	validator *validator.Validate
}

// Handler is the invites handler.
var Handler = Service{}

type createRequest struct {
	GroupID uint   `json:"group_id" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

type bulkRequest struct {
	GroupID uint     `json:"group_id" validate:"required"`
	Emails  []string `json:"emails" validate:"required,dive,email"`
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type inviteResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	GroupID   uint      `json:"group_id"`
	GroupName string    `json:"group_name,omitempty"`
	CreatedOn time.Time `json:"created_on"`
}

// Init initializes the invites handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, invites *invite.Service) {
	if app == nil || cfg == nil || db == nil || invites == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.invites = invites
	s.validator = validator.New()

	app.Post(Path, s.Create)
	app.Post(Path+"/bulk", s.CreateBulk)
	app.Get(Path, s.ListMine)
	app.Get(Path+"/token/:token", s.GetByToken)
	app.Post(Path+"/accept", s.Accept)
	app.Post(Path+"/reject", s.Reject)
}

// Create issues a single invitation. Group admin only.
func (s *Service) Create(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	inv, err := s.invites.Create(user.ID, req.GroupID, req.Email)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toResponse(inv))
}

// CreateBulk issues invitations for a list of addresses. All succeed or
// none are kept. Group admin only.
func (s *Service) CreateBulk(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req bulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	created, err := s.invites.CreateMass(user.ID, req.GroupID, req.Emails)
	if err != nil {
		return handler.Err(c, err)
	}

	out := make([]inviteResponse, 0, len(created))
	for i := range created {
		out = append(out, toResponse(&created[i]))
	}

	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMine returns pending invitations addressed to the caller's email.
func (s *Service) ListMine(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	pending, err := s.invites.ListForEmail(user.Email)
	if err != nil {
		return handler.Err(c, err)
	}

	out := make([]inviteResponse, 0, len(pending))
	for i := range pending {
		out = append(out, toResponse(&pending[i]))
	}

	return c.JSON(out)
}

// GetByToken resolves an invitation token. Public: the join page uses it
// before the invitee has an account.
func (s *Service) GetByToken(c *fiber.Ctx) error {
	inv, err := s.invites.Get(c.Params("token"))
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(toResponse(inv))
}

// Accept consumes an invitation and joins the caller to its group.
func (s *Service) Accept(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	g, err := s.invites.Accept(user.ID, req.Token)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(g)
}

// Reject discards an invitation addressed to the caller.
func (s *Service) Reject(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req tokenRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.invites.Reject(user.ID, req.Token); err != nil {
		return handler.Err(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toResponse(inv *models.Invite) inviteResponse {
	return inviteResponse{
		Token:     inv.Token,
		Email:     inv.Email,
		GroupID:   inv.GroupID,
		GroupName: inv.Group.Name,
		CreatedOn: inv.CreatedOn,
	}
}
