package filterconfig_test

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

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

func createGroupWithMember(t *testing.T, db *gorm.DB, name string, userID uint64, canView bool) *models.Group {
	t.Helper()

	grp := &models.Group{Name: name}
	require.NoError(t, db.Create(grp).Error)

	m := &models.Membership{
		UserID:  userID,
		GroupID: grp.ID,
		CanView: canView,
	}
	require.NoError(t, db.Create(m).Error)
	// CanView carries a `default:true` tag, so GORM drops a zero-value false
	// from the INSERT; persist the requested value explicitly.
	require.NoError(t, db.Model(m).Update("can_view", canView).Error)

	return grp
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)

	owner := createUser(t, db, "owner")
	grp := createGroupWithMember(t, db, "first ward", owner.ID, true)

	fc, err := filterconfig.Create(db, owner.ID, "my filter", []uint{grp.ID})
	require.NoError(t, err)
	assert.Len(t, fc.Groups, 1)

	// Empty group set is valid.
	empty, err := filterconfig.Create(db, owner.ID, "everything", nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Groups)

	_, err = filterconfig.Create(db, owner.ID, "MY FILTER", nil)
	assert.ErrorIs(t, err, filterconfig.ErrDuplicateName)

	_, err = filterconfig.Create(db, owner.ID, "", nil)
	assert.ErrorIs(t, err, filterconfig.ErrNameRequired)

	_, err = filterconfig.Create(db, owner.ID, "abc", nil)
	assert.ErrorIs(t, err, filterconfig.ErrNameTooShort)

	// Length limits count characters, not bytes.
	_, err = filterconfig.Create(db, owner.ID, "産科病棟", nil)
	assert.ErrorIs(t, err, filterconfig.ErrNameTooShort)

	_, err = filterconfig.Create(db, owner.ID, "産科病棟五", nil)
	require.NoError(t, err)
}

func TestCreateRejectsNonViewableGroup(t *testing.T) {
	db := setupTestDB(t)

	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")
	mine := createGroupWithMember(t, db, "first ward", owner.ID, true)
	theirs := createGroupWithMember(t, db, "second ward", other.ID, true)

	_, err := filterconfig.Create(db, owner.ID, "sneaky filter", []uint{mine.ID, theirs.ID})
	assert.ErrorIs(t, err, filterconfig.ErrUnauthorized)

	// Groups the owner belongs to but cannot view are rejected too.
	hidden := createGroupWithMember(t, db, "third ward", owner.ID, false)

	_, err = filterconfig.Create(db, owner.ID, "hidden filter", []uint{hidden.ID})
	assert.ErrorIs(t, err, filterconfig.ErrUnauthorized)
}

func TestGetIsOwnerScoped(t *testing.T) {
	db := setupTestDB(t)

	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")

	fc, err := filterconfig.Create(db, owner.ID, "my filter", nil)
	require.NoError(t, err)

	got, err := filterconfig.Get(db, owner.ID, fc.ID)
	require.NoError(t, err)
	assert.Equal(t, fc.ID, got.ID)

	_, err = filterconfig.Get(db, other.ID, fc.ID)
	assert.ErrorIs(t, err, filterconfig.ErrFilterNotFound)
}

func TestAddAndRemoveGroup(t *testing.T) {
	db := setupTestDB(t)

	owner := createUser(t, db, "owner")
	grp := createGroupWithMember(t, db, "first ward", owner.ID, true)

	fc, err := filterconfig.Create(db, owner.ID, "my filter", nil)
	require.NoError(t, err)

	require.NoError(t, filterconfig.AddGroup(db, owner.ID, fc.ID, grp.ID))

	got, err := filterconfig.Get(db, owner.ID, fc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Groups, 1)

	require.NoError(t, filterconfig.RemoveGroup(db, owner.ID, fc.ID, grp.ID))

	got, err = filterconfig.Get(db, owner.ID, fc.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Groups)

	err = filterconfig.RemoveGroup(db, owner.ID, fc.ID, 9999)
	assert.ErrorIs(t, err, filterconfig.ErrGroupNotFound)
}

func TestListForUser(t *testing.T) {
	db := setupTestDB(t)

	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")
	grp := createGroupWithMember(t, db, "first ward", owner.ID, true)

	_, err := filterconfig.Create(db, owner.ID, "scoped filter", []uint{grp.ID})
	require.NoError(t, err)

	_, err = filterconfig.Create(db, owner.ID, "empty filter", nil)
	require.NoError(t, err)

	_, err = filterconfig.Create(db, other.ID, "their filter", nil)
	require.NoError(t, err)

	filters, err := filterconfig.ListForUser(db, owner.ID)
	require.NoError(t, err)
	assert.Len(t, filters, 2)

	// Losing view access hides scoped filters but keeps empty ones.
	require.NoError(t, db.Model(&models.Membership{}).
		Where("user_id = ? AND group_id = ?", owner.ID, grp.ID).
		Update("can_view", false).Error)

	filters, err = filterconfig.ListForUser(db, owner.ID)
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "empty filter", filters[0].Name)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	owner := createUser(t, db, "owner")
	other := createUser(t, db, "other")
	grp := createGroupWithMember(t, db, "first ward", owner.ID, true)

	fc, err := filterconfig.Create(db, owner.ID, "my filter", []uint{grp.ID})
	require.NoError(t, err)

	err = filterconfig.Delete(db, other.ID, fc.ID)
	assert.ErrorIs(t, err, filterconfig.ErrFilterNotFound)

	require.NoError(t, filterconfig.Delete(db, owner.ID, fc.ID))

	_, err = filterconfig.Get(db, owner.ID, fc.ID)
	assert.ErrorIs(t, err, filterconfig.ErrFilterNotFound)

	// The group itself survives.
	require.NoError(t, db.First(&models.Group{}, grp.ID).Error)
}

func TestNilDB(t *testing.T) {
	_, err := filterconfig.Create(nil, 1, "my filter", nil)
	assert.ErrorIs(t, err, filterconfig.ErrDBNil)

	err = filterconfig.Delete(nil, 1, 1)
	assert.ErrorIs(t, err, filterconfig.ErrDBNil)
}
