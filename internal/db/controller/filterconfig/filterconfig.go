// Package filterconfig provides CRUD for saved filters: named group sets a
// user reuses to scope entry queries.
package filterconfig

import (
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/policy"
)

const (
	// NameMinLen is the minimum accepted filter name length after trimming.
	NameMinLen = 5
	// NameMaxLen is the maximum accepted filter name length after trimming.
	NameMaxLen = 100
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrNameRequired is returned when the filter name is empty after trimming.
	ErrNameRequired = errors.New("configuration name is required")
	// ErrNameTooShort is returned when the filter name is shorter than NameMinLen.
	ErrNameTooShort = errors.New("configuration name must be at least 5 characters")
	// ErrNameTooLong is returned when the filter name exceeds NameMaxLen.
	ErrNameTooLong = errors.New("configuration name cannot exceed 100 characters")
	// ErrDuplicateName is returned when a filter with the same name already
	// exists (compared case-insensitively, soft check).
	ErrDuplicateName = errors.New("a configuration with this name already exists")
	// ErrFilterNotFound is returned when the filter does not exist or is not
	// owned by the acting user.
	ErrFilterNotFound = errors.New("filter not found")
	// ErrGroupNotFound is returned when a referenced group does not exist.
	ErrGroupNotFound = errors.New("group not found")
	// ErrUnauthorized is returned when a filter references a group the owner
	// cannot view.
	ErrUnauthorized = errors.New("you can only add groups you belong to")
)

// Create validates the name and creates a filter owned by the user. Any
// initial groups must be viewable by the owner. An empty group set is valid
// and means "no restriction".
func Create(db *gorm.DB, userID uint64, name string, groupIDs []uint) (*models.Filter, error) {
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
	if err := db.Model(&models.Filter{}).
		Where("LOWER(name) = LOWER(?)", name).
		Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, ErrDuplicateName
	}

	groups, err := viewableGroups(db, userID, groupIDs)
	if err != nil {
		return nil, err
	}

	fc := &models.Filter{Name: name, UserID: userID, Groups: groups}
	if err = db.Create(fc).Error; err != nil {
		return nil, err
	}

	return fc, nil
}

// ListForUser returns the owner's filters whose group set is empty or
// intersects the groups the owner can currently view.
func ListForUser(db *gorm.DB, userID uint64) ([]models.Filter, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	viewable, err := policy.ViewableGroupIDs(db, userID)
	if err != nil {
		return nil, err
	}

	var filters []models.Filter
	tx := db.Preload("Groups").
		Joins("LEFT JOIN filter_groups ON filter_groups.filter_id = filters.id").
		Where("filters.user_id = ?", userID).
		Distinct("filters.*")

	if len(viewable) > 0 {
		tx = tx.Where("filter_groups.group_id IN ? OR filter_groups.group_id IS NULL", viewable)
	} else {
		tx = tx.Where("filter_groups.group_id IS NULL")
	}

	if err = tx.Find(&filters).Error; err != nil {
		return nil, err
	}

	return filters, nil
}

// Get retrieves one of the user's filters with its groups preloaded.
func Get(db *gorm.DB, userID uint64, filterID uint) (*models.Filter, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var fc models.Filter
	err := db.Preload("Groups").
		Where("id = ? AND user_id = ?", filterID, userID).
		First(&fc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFilterNotFound
		}

		return nil, err
	}

	return &fc, nil
}

// AddGroup adds a group to the filter's set. Owner only; the group must be
// viewable by the owner.
func AddGroup(db *gorm.DB, userID uint64, filterID, groupID uint) error {
	if db == nil {
		return ErrDBNil
	}

	fc, err := Get(db, userID, filterID)
	if err != nil {
		return err
	}

	groups, err := viewableGroups(db, userID, []uint{groupID})
	if err != nil {
		return err
	}

	return db.Model(fc).Association("Groups").Append(&groups[0])
}

// RemoveGroup removes a group from the filter's set. Owner only.
func RemoveGroup(db *gorm.DB, userID uint64, filterID, groupID uint) error {
	if db == nil {
		return ErrDBNil
	}

	fc, err := Get(db, userID, filterID)
	if err != nil {
		return err
	}

	var grp models.Group
	if err = db.First(&grp, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGroupNotFound
		}

		return err
	}

	return db.Model(fc).Association("Groups").Delete(&grp)
}

// Delete removes one of the user's filters.
func Delete(db *gorm.DB, userID uint64, filterID uint) error {
	if db == nil {
		return ErrDBNil
	}

	fc, err := Get(db, userID, filterID)
	if err != nil {
		return err
	}

	if err = db.Model(fc).Association("Groups").Clear(); err != nil {
		return err
	}

	return db.Delete(fc).Error
}

// viewableGroups resolves group IDs to groups, rejecting any the user cannot
// view.
func viewableGroups(db *gorm.DB, userID uint64, groupIDs []uint) ([]models.Group, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	viewable, err := policy.ViewableGroupIDs(db, userID)
	if err != nil {
		return nil, err
	}

	viewableSet := make(map[uint]bool, len(viewable))
	for _, id := range viewable {
		viewableSet[id] = true
	}

	groups := make([]models.Group, 0, len(groupIDs))

	for _, id := range groupIDs {
		if !viewableSet[id] {
			return nil, ErrUnauthorized
		}

		var grp models.Group
		if err = db.First(&grp, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}

			return nil, err
		}

		groups = append(groups, grp)
	}

	return groups, nil
}
