// Package policy provides the access control decision predicates.
// Every predicate is side-effect-free: it answers allow/deny for one
// (user, target, action) question. Absence of a membership is a deny,
// never an error; an error return always means the store itself failed.
package policy

import (
	"errors"

	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// CanViewGroup reports whether the user may read entries through the group.
// True iff a membership exists with can_view or is_admin set.
func CanViewGroup(db *gorm.DB, userID uint64, groupID uint) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	err := db.Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Where("can_view = ? OR is_admin = ?", true, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// CanAdminGroup reports whether the user is the group's administrator.
func CanAdminGroup(db *gorm.DB, userID uint64, groupID uint) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	err := db.Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ? AND is_admin = ?", userID, groupID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// CanWriteEntry reports whether the user may submit entries through the group.
// True iff a membership exists with can_add or is_admin set.
func CanWriteEntry(db *gorm.DB, userID uint64, groupID uint) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	err := db.Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Where("can_add = ? OR is_admin = ?", true, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// CanReadEntry reports whether the user may read the entry, i.e. whether at
// least one of the entry's tagged groups is viewable by the user.
func CanReadEntry(db *gorm.DB, userID uint64, entryID uint) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	err := db.Table("entry_groups").
		Joins("JOIN memberships ON memberships.group_id = entry_groups.group_id").
		Where("entry_groups.entry_id = ?", entryID).
		Where("memberships.user_id = ?", userID).
		Where("memberships.can_view = ? OR memberships.is_admin = ?", true, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ViewableGroupIDs returns the IDs of every group the user may read entries
// through. It backs the entry visibility filter and the saved-filter
// intersection logic.
func ViewableGroupIDs(db *gorm.DB, userID uint64) ([]uint, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ids []uint
	err := db.Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Where("can_view = ? OR is_admin = ?", true, true).
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// MemberGroupIDs returns the IDs of every group the user belongs to,
// regardless of flags. Entry creation tags new entries with this full set.
func MemberGroupIDs(db *gorm.DB, userID uint64) ([]uint, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var ids []uint
	err := db.Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}
