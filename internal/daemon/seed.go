package daemon

import (
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/uniuri"
)

func seed(cfg *config.Config, db *gorm.DB) {
	// Seed a development account if the user table is empty.
	// Never seeds in production mode.

	if !cfg.DevMode {
		return
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		db.Create(
			&models.User{
				Username: "admin",
				Email:    "admin@localhost",
				Password: models.HashPassword("changeme"),
				APIToken: uniuri.NewLen(models.APITokenLen),
			},
		)
	}
}
