package models

import "time"

// InviteTTL is how long an invitation stays valid after creation.
const InviteTTL = 24 * time.Hour

// Invite represents a single-use, time-limited invitation binding an email
// address to a group. The token is an HMAC signature over the email combined
// with a random nonce, so it is unguessable and does not reveal the address.
// An invite is deleted when accepted, rejected, or found expired on accept;
// expiry is lazy, there is no background sweep.
type Invite struct {
	// ID is the unique identifier for the invitation.
	ID uint `gorm:"primaryKey"`
	// Token is the unique, signed token carried in the join link.
	Token string `gorm:"unique;size:128;not null"`
	// GroupID is the group the invitee will join.
	GroupID uint `gorm:"not null"`
	// Email is the address the invitation was sent to.
	Email string `gorm:"size:255;not null"`
	// Group is the associated group (loaded via foreign key).
	// When a group is deleted, its pending invitations are automatically removed (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// CreatedOn is the issue timestamp the 24 hour expiry is measured from.
	CreatedOn time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for the Invite model.
// This overrides GORM's default pluralized table naming.
func (Invite) TableName() string {
	return "invites"
}

// ExpiredAt reports whether the invitation is past its TTL at the given moment.
func (i *Invite) ExpiredAt(now time.Time) bool {
	return now.Sub(i.CreatedOn) > InviteTTL
}
