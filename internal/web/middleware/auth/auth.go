package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

// LocalsUserKey is the fiber.Locals key holding the authenticated user.
const LocalsUserKey = "CurrentUser"

// scheme is the expected Authorization header prefix.
const scheme = "Token "

// publicPrefixes lists route prefixes reachable without a token.
var publicPrefixes = []string{
	"/checkalive",
	"/api/users/register",
	"/api/users/login",
	"/api/invites/token/",
}

// New returns a Fiber middleware that resolves the Authorization token
// to a user and stores it in fiber.Locals. Requests without a valid
// token get 401 unless the path is public.
func New(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if isPublic(c.Path()) {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, scheme) {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or malformed token")
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, scheme))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or malformed token")
		}

		var user models.User
		if err := db.Where("api_token = ?", token).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(LocalsUserKey, &user)

		return c.Next()
	}
}

// CurrentUser returns the authenticated user stored by the middleware,
// or nil when the request was not authenticated.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalsUserKey).(*models.User)
	return user
}

func isPublic(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
