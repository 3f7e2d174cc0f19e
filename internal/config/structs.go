package config

import (
	"github.com/robsoninsights/robsoninsights/internal/logger"
	"github.com/robsoninsights/robsoninsights/internal/mail"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Invite    Invite
	SMTP      mail.Config
}

// Webserver implement webserver settings.
type Webserver struct {
	CleanPath      bool   // use clean path middleware to allow multi slash requests
	DisableRecover bool   // disable recover middleware
	Domain         string // domain name for the webserver
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
}

// Invite holds invitation token settings.
type Invite struct {
	SigningSecret string // HMAC key for invitation tokens
	JoinURL       string // base URL embedded in invitation emails
}
