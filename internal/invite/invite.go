// Package invite implements the invitation lifecycle: issuing signed,
// time-limited tokens binding an email to a group, and consuming them
// exactly once on accept or reject.
package invite

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/mail"
	"github.com/robsoninsights/robsoninsights/internal/policy"
	"github.com/robsoninsights/robsoninsights/internal/uniuri"
)

const (
	// nonceLen is the length of the random nonce mixed into each token, so
	// two invitations to the same address never share a token.
	nonceLen = 16

	// mailSubject is the subject line for invitation mail.
	mailSubject = "Robson Insights Invitation"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNotFound is returned when no invitation matches the token (or, for
	// Reject, when the token does not belong to the caller's email).
	ErrNotFound = errors.New("invite not found")
	// ErrExpired is returned when the invitation is past its TTL. The
	// invitation is deleted as a side effect.
	ErrExpired = errors.New("this invite has expired")
	// ErrUnauthorized is returned when the acting user is not the group's admin.
	ErrUnauthorized = errors.New("not authorized to invite users to this group")
	// ErrDuplicateEmails is returned when a mass invitation contains the
	// same address twice. The whole batch is rejected.
	ErrDuplicateEmails = errors.New("duplicate emails are not allowed")
	// ErrNoEmails is returned when a mass invitation carries an empty list.
	ErrNoEmails = errors.New("at least one email is required")
	// ErrUserNotFound is returned when the accepting user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Service issues and consumes invitations. The signing secret is injected at
// construction; there is no process-global signing state.
type Service struct {
	db      *gorm.DB
	mailer  mail.Mailer
	secret  []byte
	joinURL string

	// now is swappable in tests to pin the clock.
	now func() time.Time
}

// New creates an invitation service. joinURL is the signup page the token is
// appended to, e.g. "https://insights.example.com/signup".
func New(db *gorm.DB, mailer mail.Mailer, secret, joinURL string) *Service {
	return &Service{
		db:      db,
		mailer:  mailer,
		secret:  []byte(secret),
		joinURL: joinURL,
		now:     time.Now,
	}
}

// Create issues an invitation for email to join the group and dispatches the
// join link. Requires the acting user to be the group's admin. If dispatch
// fails the invitation is deleted again; a failed send never leaves a
// dangling invite behind.
func (s *Service) Create(actingID uint64, groupID uint, email string) (*models.Invite, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	ok, err := policy.CanAdminGroup(s.db, actingID, groupID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrUnauthorized
	}

	inv := &models.Invite{
		Token:     s.signToken(email),
		GroupID:   groupID,
		Email:     email,
		CreatedOn: s.now(),
	}

	if err = s.db.Create(inv).Error; err != nil {
		return nil, err
	}

	if err = s.mailer.SendInvite(email, s.inviteURL(inv.Token), mailSubject); err != nil {
		if delErr := s.db.Delete(inv).Error; delErr != nil {
			log.Error().Err(delErr).Str("token", inv.Token).Msg("failed to roll back invite after mail failure")
		}

		return nil, pkgerrors.Wrap(err, "failed to send invitation email")
	}

	return inv, nil
}

// CreateMass issues one invitation per email. The batch is rejected outright
// when the list is empty or contains duplicates. If dispatch fails for any
// address, every invitation created so far in this batch is rolled back and
// the failure reported; no partial batch survives.
func (s *Service) CreateMass(actingID uint64, groupID uint, emails []string) ([]models.Invite, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	if len(emails) == 0 {
		return nil, ErrNoEmails
	}

	seen := make(map[string]bool, len(emails))
	for _, email := range emails {
		key := strings.ToLower(email)
		if seen[key] {
			return nil, ErrDuplicateEmails
		}

		seen[key] = true
	}

	created := make([]models.Invite, 0, len(emails))

	for _, email := range emails {
		inv, err := s.Create(actingID, groupID, email)
		if err != nil {
			for i := range created {
				if delErr := s.db.Delete(&created[i]).Error; delErr != nil {
					log.Error().Err(delErr).Str("token", created[i].Token).Msg("failed to roll back invite batch")
				}
			}

			return nil, err
		}

		created = append(created, *inv)
	}

	return created, nil
}

// Accept consumes the token: it creates a non-admin membership for the user
// in the invitation's group and deletes the invitation. Accepting while
// already a member still succeeds and still consumes the token. An expired
// invitation is deleted and reported as expired (lazy expiry).
func (s *Service) Accept(userID uint64, token string) (*models.Group, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var inv models.Invite
	err := s.db.Preload("Group").Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	if inv.ExpiredAt(s.now()) {
		if err = s.db.Delete(&inv).Error; err != nil {
			return nil, err
		}

		return nil, ErrExpired
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var membership models.Membership
		err := tx.Where("user_id = ? AND group_id = ?", userID, inv.GroupID).
			First(&membership).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = tx.Create(&models.Membership{
				UserID:  userID,
				GroupID: inv.GroupID,
				CanView: true,
			}).Error
		}

		if err != nil {
			return err
		}

		return tx.Delete(&inv).Error
	})
	if err != nil {
		return nil, err
	}

	return &inv.Group, nil
}

// Reject deletes the invitation, but only when the token belongs to the
// user's own email address. Anything else is reported as not found.
func (s *Service) Reject(userID uint64, token string) error {
	if s.db == nil {
		return ErrDBNil
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}

		return err
	}

	result := s.db.Where("token = ? AND email = ?", token, user.Email).Delete(&models.Invite{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Get looks up an invitation by token for previewing before the invitee has
// an account. It is a pure read: no authentication and no expiry side
// effect.
func (s *Service) Get(token string) (*models.Invite, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var inv models.Invite
	err := s.db.Preload("Group").Where("token = ?", token).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &inv, nil
}

// ListForEmail returns the pending invitations addressed to the given email.
// Expired invitations found along the way are deleted, not listed.
func (s *Service) ListForEmail(email string) ([]models.Invite, error) {
	if s.db == nil {
		return nil, ErrDBNil
	}

	var invites []models.Invite
	err := s.db.Preload("Group").Where("email = ?", email).Find(&invites).Error
	if err != nil {
		return nil, err
	}

	pending := invites[:0]

	for i := range invites {
		if invites[i].ExpiredAt(s.now()) {
			if err = s.db.Delete(&invites[i]).Error; err != nil {
				return nil, err
			}

			continue
		}

		pending = append(pending, invites[i])
	}

	return pending, nil
}

// signToken derives a token by signing the email plus a random nonce with
// the service secret. The token neither reveals the email nor can be forged
// without the secret.
func (s *Service) signToken(email string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(email))
	mac.Write([]byte(":"))
	mac.Write([]byte(uniuri.NewLen(nonceLen)))

	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) inviteURL(token string) string {
	return fmt.Sprintf("%s?token=%s", s.joinURL, token)
}
