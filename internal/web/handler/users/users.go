// Package users implements account registration, login and profile routes.
package users

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/uniuri"
	"github.com/robsoninsights/robsoninsights/internal/web/handler"
	"github.com/robsoninsights/robsoninsights/internal/web/middleware/auth"
)

// Path is the base path of the users route group.
const Path = handler.APIPrefix + "/users"

// Service is the users handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the users handler.
var Handler = Service{}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Init initializes the users handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Post(Path+"/register", s.Register)
	app.Post(Path+"/login", s.Login)
	app.Get(Path+"/me", s.Me)
}

// Register creates a new account and returns its API token.
func (s *Service) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	user := models.User{
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: models.HashPassword(req.Password),
		APIToken: uniuri.NewLen(models.APITokenLen),
	}

	if err := s.db.Create(&user).Error; err != nil {
		// unique constraint on username or email
		return fiber.NewError(fiber.StatusBadRequest, "username or email already taken")
	}

	return c.Status(fiber.StatusCreated).JSON(tokenResponse{
		Token: user.APIToken,
		User:  toResponse(&user),
	})
}

// Login verifies credentials and returns the account's API token.
func (s *Service) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var user models.User

	err := s.db.Where("username = ?", strings.ToLower(strings.TrimSpace(req.Username))).First(&user).Error
	if err != nil || !user.VerifyPassword(req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	return c.JSON(tokenResponse{
		Token: user.APIToken,
		User:  toResponse(&user),
	})
}

// Me returns the authenticated account.
func (s *Service) Me(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return fiber.ErrUnauthorized
	}

	return c.JSON(toResponse(user))
}

func toResponse(u *models.User) userResponse {
	return userResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}
