package models

import "time"

// Membership represents the many-to-many relationship between users and groups.
// It is the single source of per-group capabilities: viewing entries, adding
// entries and administering the group. A user may hold memberships in many
// groups; a (user, group) pair is unique.
type Membership struct {
	// ID is the unique identifier for the membership.
	ID uint `gorm:"primaryKey"`
	// UserID is the ID of the user in this membership.
	UserID uint64 `gorm:"not null;uniqueIndex:idx_user_group"`
	// GroupID is the ID of the group in this membership.
	GroupID uint `gorm:"not null;uniqueIndex:idx_user_group"`
	// IsAdmin marks the group's administrator. At most one membership per
	// group may carry it; writes that would create a second admin must fail.
	IsAdmin bool `gorm:"default:false"`
	// CanAdd allows the member to submit entries through this group.
	CanAdd bool `gorm:"default:false"`
	// CanView allows the member to read entries tagged with this group.
	CanView bool `gorm:"default:true"`
	// User is the associated user (loaded via foreign key).
	// When a user is deleted, their memberships are automatically removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Group is the associated group (loaded via foreign key).
	// When a group is deleted, all memberships in that group are automatically removed (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the user joined the group (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the Membership model.
// This overrides GORM's default pluralized table naming.
func (Membership) TableName() string {
	return "memberships"
}
