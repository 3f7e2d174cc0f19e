// Package daemon wires the database, mailer and web service together.
package daemon

import (
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/dsn"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/invite"
	"github.com/robsoninsights/robsoninsights/internal/mail"
	"github.com/robsoninsights/robsoninsights/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start(addr string) error {
	return d.webService.Start(addr)
}

// WaitShutdown blocks until the web service has shut down.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Invite{},
		&models.Entry{},
		&models.Filter{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	var mailer mail.Mailer = mail.NewSMTP(cfg.SMTP)

	invites := invite.New(db, mailer, cfg.Invite.SigningSecret, cfg.Invite.JoinURL)

	return &Daemon{
		webService: *web.New(cfg, db, mailer, invites),
	}
}

// openDialector selects the gorm driver from cfg.DB.GormEngine.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case "mysql":
		return gormmysql.Open(dsn.Create(cfg))
	case "postgres":
		return gormpostgres.Open(dsn.CreatePostgres(cfg))
	default:
		path := cfg.DB.Path
		if path == "" {
			path = "./robson.db"
		}

		return sqlite.Open(path)
	}
}
