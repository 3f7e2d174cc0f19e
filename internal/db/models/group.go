// Package models contains database model definitions.
package models

import "time"

// Group represents an organizational unit (a clinic, ward or study site)
// that owns survey entries. Groups are referenced by memberships,
// invitations, filters and entries. A group has at most one admin at any
// time; that invariant lives on Membership writes, not here.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the group. Uniqueness is checked
	// case-insensitively at creation time rather than with a DB constraint.
	Name string `gorm:"size:100;not null"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
// This overrides GORM's default pluralized table naming.
func (Group) TableName() string {
	return "groups"
}
