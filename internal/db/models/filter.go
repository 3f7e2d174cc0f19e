package models

import "time"

// Filter is a saved, named set of groups a user reuses to scope entry
// queries. An empty group set means "no restriction": the filter matches
// everything its owner is allowed to see, not nothing.
type Filter struct {
	// ID is the unique identifier for the filter.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the filter.
	Name string `gorm:"size:100;not null"`
	// UserID is the owning user. Only the owner may update or delete the filter.
	UserID uint64 `gorm:"not null"`
	// User is the associated owner (loaded via foreign key).
	// When a user is deleted, their filters are automatically removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Groups is the set of groups the filter scopes queries to.
	Groups []Group `gorm:"many2many:filter_groups;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the filter was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the filter was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Filter model.
// This overrides GORM's default pluralized table naming.
func (Filter) TableName() string {
	return "filters"
}
