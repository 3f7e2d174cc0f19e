package invite

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/db/models"
)

// recordingMailer captures dispatched invites and optionally fails after a
// number of successful sends.
type recordingMailer struct {
	sent      []string
	failAfter int // -1 = never fail
}

func (m *recordingMailer) SendInvite(to, _, _ string) error {
	if m.failAfter >= 0 && len(m.sent) >= m.failAfter {
		return errors.New("smtp unreachable")
	}

	m.sent = append(m.sent, to)

	return nil
}

func (m *recordingMailer) SendAttachment(_, _, _, _ string, _ []byte) error {
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Invite{},
	))

	return db
}

func setupService(t *testing.T) (*Service, *gorm.DB, *recordingMailer) {
	t.Helper()

	db := setupTestDB(t)
	mailer := &recordingMailer{failAfter: -1}
	svc := New(db, mailer, "test-secret", "http://localhost/join")

	return svc, db, mailer
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

func createGroupWithAdmin(t *testing.T, db *gorm.DB, name string, adminID uint64) *models.Group {
	t.Helper()

	grp := &models.Group{Name: name}
	require.NoError(t, db.Create(grp).Error)

	require.NoError(t, db.Create(&models.Membership{
		UserID:  adminID,
		GroupID: grp.ID,
		IsAdmin: true,
		CanView: true,
	}).Error)

	return grp
}

func inviteCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Invite{}).Count(&count).Error)

	return count
}

func TestCreate(t *testing.T) {
	svc, db, mailer := setupService(t)

	admin := createUser(t, db, "admin")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	inv, err := svc.Create(admin.ID, grp.ID, "invitee@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, inv.Token)
	assert.Equal(t, []string{"invitee@example.com"}, mailer.sent)

	// Two invitations to the same address get distinct tokens.
	other, err := svc.Create(admin.ID, grp.ID, "invitee@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, inv.Token, other.Token)
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, db, _ := setupService(t)

	admin := createUser(t, db, "admin")
	member := createUser(t, db, "member")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	require.NoError(t, db.Create(&models.Membership{
		UserID:  member.ID,
		GroupID: grp.ID,
		CanView: true,
	}).Error)

	_, err := svc.Create(member.ID, grp.ID, "invitee@example.com")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateRollsBackOnMailFailure(t *testing.T) {
	svc, db, mailer := setupService(t)
	mailer.failAfter = 0

	admin := createUser(t, db, "admin")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	_, err := svc.Create(admin.ID, grp.ID, "invitee@example.com")
	require.Error(t, err)

	// The failed send leaves no invitation behind.
	assert.EqualValues(t, 0, inviteCount(t, db))
}

func TestCreateMass(t *testing.T) {
	svc, db, mailer := setupService(t)

	admin := createUser(t, db, "admin")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	created, err := svc.CreateMass(admin.ID, grp.ID, []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Len(t, mailer.sent, 2)

	_, err = svc.CreateMass(admin.ID, grp.ID, nil)
	assert.ErrorIs(t, err, ErrNoEmails)

	// Duplicates are detected case-insensitively and reject the whole batch.
	_, err = svc.CreateMass(admin.ID, grp.ID, []string{"c@example.com", "C@EXAMPLE.COM"})
	assert.ErrorIs(t, err, ErrDuplicateEmails)
}

func TestCreateMassRollsBackWholeBatch(t *testing.T) {
	svc, db, mailer := setupService(t)
	mailer.failAfter = 2 // third send fails

	admin := createUser(t, db, "admin")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	_, err := svc.CreateMass(admin.ID, grp.ID, []string{"a@example.com", "b@example.com", "c@example.com"})
	require.Error(t, err)

	// The two successfully created invitations are rolled back too.
	assert.EqualValues(t, 0, inviteCount(t, db))
}

func TestAccept(t *testing.T) {
	svc, db, _ := setupService(t)

	admin := createUser(t, db, "admin")
	invitee := createUser(t, db, "invitee")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	inv, err := svc.Create(admin.ID, grp.ID, invitee.Email)
	require.NoError(t, err)

	joined, err := svc.Accept(invitee.ID, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, grp.ID, joined.ID)

	// Joined as a plain member.
	var m models.Membership
	require.NoError(t, db.Where("user_id = ? AND group_id = ?", invitee.ID, grp.ID).First(&m).Error)
	assert.False(t, m.IsAdmin)
	assert.False(t, m.CanAdd)
	assert.True(t, m.CanView)

	// Single use: the token is gone.
	_, err = svc.Accept(invitee.ID, inv.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAcceptAlreadyMember(t *testing.T) {
	svc, db, _ := setupService(t)

	admin := createUser(t, db, "admin")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	inv, err := svc.Create(admin.ID, grp.ID, admin.Email)
	require.NoError(t, err)

	// Accepting as an existing member succeeds and consumes the token.
	_, err = svc.Accept(admin.ID, inv.Token)
	require.NoError(t, err)
	assert.EqualValues(t, 0, inviteCount(t, db))

	// The admin flag is untouched.
	var m models.Membership
	require.NoError(t, db.Where("user_id = ? AND group_id = ?", admin.ID, grp.ID).First(&m).Error)
	assert.True(t, m.IsAdmin)
}

func TestAcceptExpiry(t *testing.T) {
	svc, db, _ := setupService(t)

	admin := createUser(t, db, "admin")
	invitee := createUser(t, db, "invitee")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	inv, err := svc.Create(admin.ID, grp.ID, invitee.Email)
	require.NoError(t, err)

	// Just inside the TTL still works.
	svc.now = func() time.Time { return issued.Add(models.InviteTTL - time.Minute) }

	_, err = svc.Accept(invitee.ID, inv.Token)
	require.NoError(t, err)

	// Just past the TTL is expired, and the invitation is deleted on the
	// spot rather than by a sweeper.
	svc.now = func() time.Time { return issued }

	late, err := svc.Create(admin.ID, grp.ID, "late@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(models.InviteTTL + time.Minute) }

	_, err = svc.Accept(invitee.ID, late.Token)
	assert.ErrorIs(t, err, ErrExpired)
	assert.EqualValues(t, 0, inviteCount(t, db))
}

func TestReject(t *testing.T) {
	svc, db, _ := setupService(t)

	admin := createUser(t, db, "admin")
	invitee := createUser(t, db, "invitee")
	other := createUser(t, db, "other")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	inv, err := svc.Create(admin.ID, grp.ID, invitee.Email)
	require.NoError(t, err)

	// Only the addressee can reject.
	err = svc.Reject(other.ID, inv.Token)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Reject(invitee.ID, inv.Token))
	assert.EqualValues(t, 0, inviteCount(t, db))

	// No membership was created.
	err = db.Where("user_id = ? AND group_id = ?", invitee.ID, grp.ID).
		First(&models.Membership{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetAndListForEmail(t *testing.T) {
	svc, db, _ := setupService(t)

	admin := createUser(t, db, "admin")
	grp := createGroupWithAdmin(t, db, "maternity ward", admin.ID)

	inv, err := svc.Create(admin.ID, grp.ID, "invitee@example.com")
	require.NoError(t, err)

	got, err := svc.Get(inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "maternity ward", got.Group.Name)

	_, err = svc.Get("no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)

	pending, err := svc.ListForEmail("invitee@example.com")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	pending, err = svc.ListForEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, pending)

	// An expired invitation drops out of the listing and gets deleted.
	svc.now = func() time.Time { return inv.CreatedOn.Add(models.InviteTTL + time.Minute) }

	pending, err = svc.ListForEmail("invitee@example.com")
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.EqualValues(t, 0, inviteCount(t, db))
}
