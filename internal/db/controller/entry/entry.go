// Package entry provides the entry store operations and the visibility
// filter that decides which classification records a user can see.
package entry

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/policy"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrInvalidClassification is returned when the code is not one of the
	// fixed Robson codes.
	ErrInvalidClassification = errors.New("invalid classification code")
	// ErrEntryNotFound is returned when the entry does not exist or the user
	// cannot read it through any of its groups; the two cases are
	// indistinguishable to the caller.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNoGroups is returned when the submitting user has no group
	// memberships to tag the new entry with.
	ErrNoGroups = errors.New("you do not have permission to add entries to any group")
	// ErrUnauthorized is returned when a group-scoped listing is requested
	// for a group the user cannot view.
	ErrUnauthorized = errors.New("you do not have permission to view entries for this group")
)

// SelectorKind distinguishes the two listing selectors.
type SelectorKind string

const (
	// SelectorFilter scopes a listing by a saved filter. Groups the user
	// cannot view are silently dropped from the filter's set.
	SelectorFilter SelectorKind = "filter"
	// SelectorGroup scopes a listing to one group. Unlike the filter
	// selector, lacking view permission here is an outright denial.
	SelectorGroup SelectorKind = "group"
)

// Selector identifies either a saved filter or a single group to list by.
type Selector struct {
	Kind SelectorKind
	ID   uint
}

// Create records one classified delivery submitted by the user. The entry is
// tagged with ALL of the submitter's current group memberships, not a single
// target group; an entry posted by a member of five groups lands in all
// five. This matches the original system and is flagged in DESIGN.md.
// A nil date defaults to now (bulk uploads pass the quarter start instead).
func Create(db *gorm.DB, userID uint64, classification string, csection bool, date *time.Time) (*models.Entry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if !models.ValidClassification(classification) {
		return nil, ErrInvalidClassification
	}

	groupIDs, err := policy.MemberGroupIDs(db, userID)
	if err != nil {
		return nil, err
	}

	if len(groupIDs) == 0 {
		return nil, ErrNoGroups
	}

	var groups []models.Group
	if err = db.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
		return nil, err
	}

	when := time.Now()
	if date != nil {
		when = *date
	}

	ent := &models.Entry{
		Classification: classification,
		CSection:       csection,
		Date:           when,
		UserID:         &userID,
		Groups:         groups,
	}

	if err = db.Create(ent).Error; err != nil {
		return nil, err
	}

	return ent, nil
}

// ListVisible returns every entry tagged with at least one group the user
// may view, deduplicated: an entry visible through two groups appears once.
func ListVisible(db *gorm.DB, userID uint64) ([]models.Entry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	groupIDs, err := policy.ViewableGroupIDs(db, userID)
	if err != nil {
		return nil, err
	}

	if len(groupIDs) == 0 {
		return []models.Entry{}, nil
	}

	return findDistinct(db.Model(&models.Entry{}).
		Joins("JOIN entry_groups ON entry_groups.entry_id = entries.id").
		Where("entry_groups.group_id IN ?", groupIDs))
}

// Get retrieves a single entry gated by the read policy. A missing entry and
// an entry the user cannot read both come back as ErrEntryNotFound.
func Get(db *gorm.DB, userID uint64, entryID uint) (*models.Entry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	ok, err := policy.CanReadEntry(db, userID, entryID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrEntryNotFound
	}

	var ent models.Entry
	err = db.Preload("Groups").Preload("User").First(&ent, entryID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}

		return nil, err
	}

	return &ent, nil
}

// FilterByDateRange lists the user's visible entries restricted by optional
// date bounds, ordered ascending by entry date. A start bound matches from
// the beginning of that calendar day, an end bound through the end of that
// day; both ends inclusive. The scope is the same viewable group set
// ListVisible uses: a membership without view access contributes nothing.
func FilterByDateRange(db *gorm.DB, userID uint64, start, end *time.Time) ([]models.Entry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	groupIDs, err := policy.ViewableGroupIDs(db, userID)
	if err != nil {
		return nil, err
	}

	if len(groupIDs) == 0 {
		return []models.Entry{}, nil
	}

	tx := db.Model(&models.Entry{}).
		Joins("JOIN entry_groups ON entry_groups.entry_id = entries.id").
		Where("entry_groups.group_id IN ?", groupIDs)

	if start != nil {
		tx = tx.Where("entries.date >= ?", dayStart(*start))
	}

	if end != nil {
		tx = tx.Where("entries.date <= ?", dayEnd(*end))
	}

	return findDistinct(tx.Order("entries.date ASC"))
}

// ListBySelector lists entries scoped by either a saved filter or a single
// group. The two selectors fail differently on purpose: a filter silently
// restricts to groups the user can view, while a group selector the user
// cannot view is rejected outright.
func ListBySelector(db *gorm.DB, userID uint64, sel Selector) ([]models.Entry, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	switch sel.Kind {
	case SelectorFilter:
		return listByFilter(db, userID, sel.ID)
	case SelectorGroup:
		return listByGroup(db, userID, sel.ID)
	default:
		return []models.Entry{}, nil
	}
}

func listByFilter(db *gorm.DB, userID uint64, filterID uint) ([]models.Entry, error) {
	var fc models.Filter
	err := db.Preload("Groups").Where("id = ? AND user_id = ?", filterID, userID).First(&fc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.Entry{}, nil
		}

		return nil, err
	}

	viewable, err := policy.ViewableGroupIDs(db, userID)
	if err != nil {
		return nil, err
	}

	if len(viewable) == 0 {
		return []models.Entry{}, nil
	}

	// An empty filter group set means "no restriction": scope to everything
	// the owner can view rather than to nothing.
	scope := viewable
	if len(fc.Groups) > 0 {
		viewableSet := make(map[uint]bool, len(viewable))
		for _, id := range viewable {
			viewableSet[id] = true
		}

		scope = scope[:0]
		for _, grp := range fc.Groups {
			if viewableSet[grp.ID] {
				scope = append(scope, grp.ID)
			}
		}

		if len(scope) == 0 {
			return []models.Entry{}, nil
		}
	}

	return findDistinct(db.Model(&models.Entry{}).
		Joins("JOIN entry_groups ON entry_groups.entry_id = entries.id").
		Where("entry_groups.group_id IN ?", scope))
}

func listByGroup(db *gorm.DB, userID uint64, groupID uint) ([]models.Entry, error) {
	ok, err := policy.CanViewGroup(db, userID, groupID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, ErrUnauthorized
	}

	return findDistinct(db.Model(&models.Entry{}).
		Joins("JOIN entry_groups ON entry_groups.entry_id = entries.id").
		Where("entry_groups.group_id = ?", groupID))
}

// findDistinct runs the assembled query with deduplication and the standard
// preloads applied.
func findDistinct(tx *gorm.DB) ([]models.Entry, error) {
	var entries []models.Entry
	err := tx.Distinct("entries.*").
		Preload("Groups").
		Preload("User").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
