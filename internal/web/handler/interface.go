// Package handler contains shared plumbing for the web API handlers:
// the common init interface, route constants and the error to HTTP
// status mapping.
package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error
}
