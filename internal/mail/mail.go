// Package mail provides outbound mail dispatch for invitations and emailed
// exports. The core only depends on the Mailer interface; the SMTP
// implementation lives behind it so tests can substitute a stub and observe
// dispatch failures.
package mail

import (
	"bytes"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// ErrDisabled is returned when dispatch is attempted while SMTP is disabled.
var ErrDisabled = errors.New("mail dispatch is disabled")

// Mailer sends notifications on behalf of the core. Failures must be
// reported to the caller; invitation creation rolls back on a failed send.
type Mailer interface {
	// SendInvite delivers a join link for a pending invitation.
	SendInvite(to, inviteURL, subject string) error
	// SendAttachment delivers a message with a single file attached.
	SendAttachment(to, subject, body, filename string, data []byte) error
}

// Config holds the SMTP connection settings.
type Config struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// SMTP is the production Mailer backed by an SMTP server.
type SMTP struct {
	cfg Config
}

// NewSMTP creates an SMTP mailer from the given settings.
func NewSMTP(cfg Config) *SMTP {
	return &SMTP{cfg: cfg}
}

// SendInvite implements Mailer.
func (s *SMTP) SendInvite(to, inviteURL, subject string) error {
	msg, err := s.newMsg(to, subject)
	if err != nil {
		return err
	}

	msg.SetBodyString(gomail.TypeTextPlain, inviteURL)
	msg.AddAlternativeString(gomail.TypeTextHTML,
		fmt.Sprintf(`<p>You have been invited to join a group on Robson Insights.</p>`+
			`<p><a href=%q>Accept the invitation</a></p>`, inviteURL))

	return s.send(msg)
}

// SendAttachment implements Mailer.
func (s *SMTP) SendAttachment(to, subject, body, filename string, data []byte) error {
	msg, err := s.newMsg(to, subject)
	if err != nil {
		return err
	}

	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err = msg.AttachReader(filename, bytes.NewReader(data)); err != nil {
		return err
	}

	return s.send(msg)
}

func (s *SMTP) newMsg(to, subject string) (*gomail.Msg, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}

	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, err
	}

	if err := msg.To(to); err != nil {
		return nil, err
	}

	msg.Subject(subject)

	return msg, nil
}

func (s *SMTP) send(msg *gomail.Msg) error {
	client, err := gomail.NewClient(s.cfg.Host,
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
	)
	if err != nil {
		return err
	}

	return client.DialAndSend(msg)
}
