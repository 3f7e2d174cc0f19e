package entry_test

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/controller/entry"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/filterconfig"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Entry{},
		&models.Filter{},
	))

	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		APIToken: "token-" + username,
	}
	require.NoError(t, db.Create(user).Error)

	return user
}

func createGroup(t *testing.T, db *gorm.DB, name string) *models.Group {
	t.Helper()

	grp := &models.Group{Name: name}
	require.NoError(t, db.Create(grp).Error)

	return grp
}

func createMembership(t *testing.T, db *gorm.DB, userID uint64, groupID uint, isAdmin, canAdd, canView bool) {
	t.Helper()

	m := &models.Membership{
		UserID:  userID,
		GroupID: groupID,
		IsAdmin: isAdmin,
		CanAdd:  canAdd,
		CanView: canView,
	}
	require.NoError(t, db.Create(m).Error)
	// CanView carries a `default:true` tag, so GORM drops a zero-value false
	// from the INSERT; persist the requested value explicitly.
	require.NoError(t, db.Model(m).Update("can_view", canView).Error)
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	first := createGroup(t, db, "first ward")
	second := createGroup(t, db, "second ward")

	createMembership(t, db, author.ID, first.ID, false, true, true)
	createMembership(t, db, author.ID, second.ID, false, false, true)

	e, err := entry.Create(db, author.ID, "5.1", true, nil)
	require.NoError(t, err)
	assert.Equal(t, "5.1", e.Classification)
	assert.True(t, e.CSection)
	assert.WithinDuration(t, time.Now(), e.Date, time.Minute)

	// Tagged with every membership group, not just writable ones.
	var got models.Entry
	require.NoError(t, db.Preload("Groups").First(&got, e.ID).Error)
	assert.Len(t, got.Groups, 2)
}

func TestCreateExplicitDate(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	grp := createGroup(t, db, "first ward")
	createMembership(t, db, author.ID, grp.ID, false, true, true)

	date := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	e, err := entry.Create(db, author.ID, "3", false, &date)
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(date))
}

func TestCreateInvalid(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	loner := createUser(t, db, "loner")
	grp := createGroup(t, db, "first ward")
	createMembership(t, db, author.ID, grp.ID, false, true, true)

	_, err := entry.Create(db, author.ID, "11", false, nil)
	assert.ErrorIs(t, err, entry.ErrInvalidClassification)

	_, err = entry.Create(db, author.ID, "5", false, nil)
	assert.ErrorIs(t, err, entry.ErrInvalidClassification)

	// No memberships means no target groups.
	_, err = entry.Create(db, loner.ID, "1", false, nil)
	assert.ErrorIs(t, err, entry.ErrNoGroups)
}

func TestListVisibleDeduplicates(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	first := createGroup(t, db, "first ward")
	second := createGroup(t, db, "second ward")

	createMembership(t, db, author.ID, first.ID, false, true, true)
	createMembership(t, db, author.ID, second.ID, false, true, true)

	// Entry tagged with both groups must appear once.
	e, err := entry.Create(db, author.ID, "2", false, nil)
	require.NoError(t, err)
	require.NotNil(t, e)

	visible, err := entry.ListVisible(db, author.ID)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestListVisibleScope(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	peer := createUser(t, db, "peer")
	hidden := createUser(t, db, "hidden")
	outsider := createUser(t, db, "outsider")
	grp := createGroup(t, db, "first ward")

	createMembership(t, db, author.ID, grp.ID, false, true, true)
	createMembership(t, db, peer.ID, grp.ID, false, false, true)
	createMembership(t, db, hidden.ID, grp.ID, false, true, false)

	_, err := entry.Create(db, author.ID, "1", false, nil)
	require.NoError(t, err)

	for _, tt := range []struct {
		name   string
		userID uint64
		want   int
	}{
		{"author sees own entry", author.ID, 1},
		{"viewing peer sees it", peer.ID, 1},
		{"member without can_view sees nothing", hidden.ID, 0},
		{"outsider sees nothing", outsider.ID, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			visible, err := entry.ListVisible(db, tt.userID)
			require.NoError(t, err)
			assert.Len(t, visible, tt.want)
		})
	}
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	outsider := createUser(t, db, "outsider")
	grp := createGroup(t, db, "first ward")
	createMembership(t, db, author.ID, grp.ID, false, true, true)

	e, err := entry.Create(db, author.ID, "4", false, nil)
	require.NoError(t, err)

	got, err := entry.Get(db, author.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Len(t, got.Groups, 1)

	// Unauthorized and missing are indistinguishable.
	_, err = entry.Get(db, outsider.ID, e.ID)
	assert.ErrorIs(t, err, entry.ErrEntryNotFound)

	_, err = entry.Get(db, author.ID, 9999)
	assert.ErrorIs(t, err, entry.ErrEntryNotFound)
}

func TestFilterByDateRange(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	grp := createGroup(t, db, "first ward")
	createMembership(t, db, author.ID, grp.ID, false, true, true)

	dates := []time.Time{
		time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	for _, d := range dates {
		d := d
		_, err := entry.Create(db, author.ID, "1", false, &d)
		require.NoError(t, err)
	}

	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	found, err := entry.FilterByDateRange(db, author.ID, &start, &end)
	require.NoError(t, err)
	require.Len(t, found, 2)

	// Ordered oldest first.
	assert.True(t, found[0].Date.Before(found[1].Date))

	// Boundary day is inclusive on both ends.
	sameDay := time.Date(2024, 10, 1, 23, 0, 0, 0, time.UTC)
	found, err = entry.FilterByDateRange(db, author.ID, &dates[1], &sameDay)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// Open-ended range.
	found, err = entry.FilterByDateRange(db, author.ID, &start, nil)
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestFilterByDateRangeHonorsViewRevocation(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	revoked := createUser(t, db, "revoked")
	grp := createGroup(t, db, "first ward")
	createMembership(t, db, author.ID, grp.ID, false, true, true)
	createMembership(t, db, revoked.ID, grp.ID, false, false, false)

	d := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	_, err := entry.Create(db, author.ID, "1", false, &d)
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// The date filter uses the same viewable scope as ListVisible: a
	// member without view access sees nothing through either path.
	found, err := entry.FilterByDateRange(db, revoked.ID, &start, nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = entry.FilterByDateRange(db, author.ID, &start, nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestListBySelectorGroup(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	outsider := createUser(t, db, "outsider")
	grp := createGroup(t, db, "first ward")
	createMembership(t, db, author.ID, grp.ID, false, true, true)

	_, err := entry.Create(db, author.ID, "1", false, nil)
	require.NoError(t, err)

	found, err := entry.ListBySelector(db, author.ID, entry.Selector{Kind: entry.SelectorGroup, ID: grp.ID})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// Group selector on a non-viewable group is a hard deny.
	_, err = entry.ListBySelector(db, outsider.ID, entry.Selector{Kind: entry.SelectorGroup, ID: grp.ID})
	assert.ErrorIs(t, err, entry.ErrUnauthorized)
}

func TestListBySelectorFilter(t *testing.T) {
	db := setupTestDB(t)

	author := createUser(t, db, "author")
	first := createGroup(t, db, "first ward")
	second := createGroup(t, db, "second ward")

	createMembership(t, db, author.ID, first.ID, false, true, true)
	createMembership(t, db, author.ID, second.ID, false, true, true)

	// One entry in both groups via membership tagging.
	_, err := entry.Create(db, author.ID, "1", false, nil)
	require.NoError(t, err)

	// Empty filter group set means no restriction.
	empty, err := filterconfig.Create(db, author.ID, "everything", nil)
	require.NoError(t, err)

	found, err := entry.ListBySelector(db, author.ID, entry.Selector{Kind: entry.SelectorFilter, ID: empty.ID})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// Scoped filter intersects with the viewable set.
	scoped, err := filterconfig.Create(db, author.ID, "first only", []uint{first.ID})
	require.NoError(t, err)

	found, err = entry.ListBySelector(db, author.ID, entry.Selector{Kind: entry.SelectorFilter, ID: scoped.ID})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	// A missing filter silently yields nothing, not an error.
	found, err = entry.ListBySelector(db, author.ID, entry.Selector{Kind: entry.SelectorFilter, ID: 9999})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNilDB(t *testing.T) {
	_, err := entry.Create(nil, 1, "1", false, nil)
	assert.ErrorIs(t, err, entry.ErrDBNil)

	_, err = entry.ListVisible(nil, 1)
	assert.ErrorIs(t, err, entry.ErrDBNil)
}
