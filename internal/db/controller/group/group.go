// Package group provides the group and membership lifecycle operations:
// creation, joining, leaving, removal, admin hand-over and per-member
// permission toggling.
package group

import (
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/policy"
)

const (
	// NameMinLen is the minimum accepted group name length after trimming.
	NameMinLen = 5
	// NameMaxLen is the maximum accepted group name length after trimming.
	NameMaxLen = 100
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNameRequired is returned when the group name is empty after trimming.
	ErrNameRequired = errors.New("group name is required")
	// ErrNameTooShort is returned when the group name is shorter than NameMinLen.
	ErrNameTooShort = errors.New("group name must be at least 5 characters")
	// ErrNameTooLong is returned when the group name exceeds NameMaxLen.
	ErrNameTooLong = errors.New("group name cannot exceed 100 characters")
	// ErrDuplicateName is returned when a group with the same name already
	// exists (compared case-insensitively).
	ErrDuplicateName = errors.New("a group with this name already exists")
	// ErrGroupNotFound is returned when a group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrMembershipNotFound is returned when the user is not a member of the group.
	ErrMembershipNotFound = errors.New("user is not a member of this group")
	// ErrUnauthorized is returned when the acting user is not the group's admin.
	ErrUnauthorized = errors.New("not authorized to administer this group")
	// ErrLastAdmin is returned when the group's only admin tries to leave.
	ErrLastAdmin = errors.New("cannot leave group: you are the last administrator")
	// ErrLastMembership is returned by RemoveUser when the operation would
	// leave the acting admin without any group membership.
	ErrLastMembership = errors.New("you must be a member of at least one group")
	// ErrSecondAdmin is returned when a write would give a group two admins.
	ErrSecondAdmin = errors.New("there can only be one admin per group")
)

// Create validates the name, creates the group and makes the creator its
// admin. This is the only path that produces a group's first admin.
// The duplicate-name check is a soft check: two concurrent creates with the
// same name can both pass it, matching the accepted race in the design.
func Create(db *gorm.DB, userID uint64, name string) (*models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, ErrNameRequired
	case utf8.RuneCountInString(name) > NameMaxLen:
		return nil, ErrNameTooLong
	case utf8.RuneCountInString(name) < NameMinLen:
		return nil, ErrNameTooShort
	}

	var count int64
	if err := db.Model(&models.Group{}).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, ErrDuplicateName
	}

	grp := &models.Group{Name: name}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(grp).Error; err != nil {
			return err
		}

		return tx.Create(&models.Membership{
			UserID:  userID,
			GroupID: grp.ID,
			IsAdmin: true,
			CanView: true,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return grp, nil
}

// Get retrieves a group by ID.
func Get(db *gorm.DB, groupID uint) (*models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var grp models.Group
	if err := db.First(&grp, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}

		return nil, err
	}

	return &grp, nil
}

// AddUser adds the named user to the group. Requires the acting user to be
// the group's admin. Adding an existing member succeeds and reports
// created=false so callers can distinguish "newly added" from "already a
// member".
func AddUser(db *gorm.DB, actingID uint64, username string, groupID uint) (created bool, err error) {
	if db == nil {
		return false, ErrDBNil
	}

	user, err := userByName(db, username)
	if err != nil {
		return false, err
	}

	if _, err = Get(db, groupID); err != nil {
		return false, err
	}

	ok, err := policy.CanAdminGroup(db, actingID, groupID)
	if err != nil {
		return false, err
	}

	if !ok {
		return false, ErrUnauthorized
	}

	var existing models.Membership
	err = db.Where("user_id = ? AND group_id = ?", user.ID, groupID).First(&existing).Error
	if err == nil {
		return false, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	err = db.Create(&models.Membership{
		UserID:  user.ID,
		GroupID: groupID,
		CanView: true,
	}).Error
	if err != nil {
		return false, err
	}

	return true, nil
}

// RemoveUser removes the named user's membership from the group. Requires
// the acting user to be the group's admin. The membership-count guard checks
// the ACTING admin's own total membership count, not the target's; this
// mirrors the original system's behavior and is kept deliberately (see
// DESIGN.md).
func RemoveUser(db *gorm.DB, actingID uint64, username string, groupID uint) error {
	if db == nil {
		return ErrDBNil
	}

	user, err := userByName(db, username)
	if err != nil {
		return err
	}

	if _, err = Get(db, groupID); err != nil {
		return err
	}

	var membership models.Membership
	err = db.Where("user_id = ? AND group_id = ?", user.ID, groupID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}

		return err
	}

	ok, err := policy.CanAdminGroup(db, actingID, groupID)
	if err != nil {
		return err
	}

	if !ok {
		return ErrUnauthorized
	}

	var actingCount int64
	if err = db.Model(&models.Membership{}).
		Where("user_id = ?", actingID).
		Count(&actingCount).Error; err != nil {
		return err
	}

	if actingCount <= 1 {
		return ErrLastMembership
	}

	return db.Delete(&membership).Error
}

// Leave removes the user's own membership from the group. The group's last
// admin may not leave; that would orphan the group.
func Leave(db *gorm.DB, userID uint64, groupID uint) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, groupID); err != nil {
		return err
	}

	var membership models.Membership
	err := db.Where("user_id = ? AND group_id = ?", userID, groupID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}

		return err
	}

	if membership.IsAdmin {
		var adminCount int64
		if err = db.Model(&models.Membership{}).
			Where("group_id = ? AND is_admin = ?", groupID, true).
			Count(&adminCount).Error; err != nil {
			return err
		}

		if adminCount <= 1 {
			return ErrLastAdmin
		}
	}

	return db.Delete(&membership).Error
}

// ChangeAdmin hands the group's admin flag from the acting user to the named
// member. Both flag flips happen in one transaction: either both memberships
// are updated or neither is, so the one-admin invariant holds at every
// commit point.
func ChangeAdmin(db *gorm.DB, actingID uint64, groupID uint, newAdminUsername string) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, groupID); err != nil {
		return err
	}

	newAdmin, err := userByName(db, newAdminUsername)
	if err != nil {
		return err
	}

	var newMembership models.Membership
	err = db.Where("user_id = ? AND group_id = ?", newAdmin.ID, groupID).First(&newMembership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}

		return err
	}

	var current models.Membership
	err = db.Where("user_id = ? AND group_id = ? AND is_admin = ?", actingID, groupID, true).
		First(&current).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnauthorized
		}

		return err
	}

	if current.ID == newMembership.ID {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&current).Update("is_admin", false).Error; err != nil {
			return err
		}

		// Re-check inside the transaction so a concurrent write cannot
		// produce a second admin.
		var adminCount int64
		if err := tx.Model(&models.Membership{}).
			Where("group_id = ? AND is_admin = ? AND id <> ?", groupID, true, newMembership.ID).
			Count(&adminCount).Error; err != nil {
			return err
		}

		if adminCount > 0 {
			return ErrSecondAdmin
		}

		return tx.Model(&newMembership).Update("is_admin", true).Error
	})
}

// TogglePermissions sets the target member's can_view flag. Requires the
// acting user to be the group's admin.
func TogglePermissions(db *gorm.DB, actingID uint64, groupID uint, username string, canView bool) error {
	if db == nil {
		return ErrDBNil
	}

	if _, err := Get(db, groupID); err != nil {
		return err
	}

	ok, err := policy.CanAdminGroup(db, actingID, groupID)
	if err != nil {
		return err
	}

	if !ok {
		return ErrUnauthorized
	}

	user, err := userByName(db, username)
	if err != nil {
		return err
	}

	var membership models.Membership
	err = db.Where("user_id = ? AND group_id = ?", user.ID, groupID).First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMembershipNotFound
		}

		return err
	}

	return db.Model(&membership).Update("can_view", canView).Error
}

// ListForUser returns every group the user is a member of.
func ListForUser(db *gorm.DB, userID uint64) ([]models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var groups []models.Group
	err := db.Table("groups").
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}

	return groups, nil
}

// ViewableForUser returns the groups the user holds a can_view membership
// in. Note this intentionally excludes admin-only memberships with can_view
// cleared, matching the original groups-can-view listing.
func ViewableForUser(db *gorm.DB, userID uint64) ([]models.Group, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var groups []models.Group
	err := db.Table("groups").
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ? AND memberships.can_view = ?", userID, true).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}

	return groups, nil
}

// MembersOf returns the group's memberships with their users preloaded.
func MembersOf(db *gorm.DB, groupID uint) ([]models.Membership, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var memberships []models.Membership
	err := db.Preload("User").Where("group_id = ?", groupID).Find(&memberships).Error
	if err != nil {
		return nil, err
	}

	return memberships, nil
}

// userByName fetches a user by username, compared case-insensitively.
func userByName(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	err := db.Where("LOWER(username) = LOWER(?)", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &user, nil
}
