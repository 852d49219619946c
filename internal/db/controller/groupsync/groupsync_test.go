package groupsync

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Group{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestSyncCreatesGroup(t *testing.T) {
	db := setupTestDB(t)

	group, err := Sync(db, "cn=engineering,ou=groups,dc=example,dc=com", "engineering", "Engineering team")
	require.NoError(t, err)

	assert.NotZero(t, group.ID)
	assert.Equal(t, "cn=engineering,ou=groups,dc=example,dc=com", group.DN)
	assert.Equal(t, "engineering", group.CN)
	assert.Equal(t, "Engineering team", group.Description)
	assert.False(t, group.LastSeen.IsZero())
}

func TestSyncIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	first, err := Sync(db, "cn=engineering,ou=groups,dc=example,dc=com", "engineering", "")
	require.NoError(t, err)

	second, err := Sync(db, "cn=engineering,ou=groups,dc=example,dc=com", "engineering", "")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSyncPreservesMetadataOnBareResync(t *testing.T) {
	db := setupTestDB(t)

	_, err := Sync(db, "cn=engineering,ou=groups,dc=example,dc=com", "engineering", "Engineering team")
	require.NoError(t, err)

	// A reverse-lookup sighting carries only the DN. Existing metadata
	// survives, the last-seen timestamp moves.
	group, err := Sync(db, "cn=engineering,ou=groups,dc=example,dc=com", "", "")
	require.NoError(t, err)

	assert.Equal(t, "engineering", group.CN)
	assert.Equal(t, "Engineering team", group.Description)
}

func TestSyncRefreshesLastSeen(t *testing.T) {
	db := setupTestDB(t)

	stale := time.Now().Add(-24 * time.Hour)

	require.NoError(t, db.Create(&models.Group{
		DN:       "cn=engineering,ou=groups,dc=example,dc=com",
		LastSeen: stale,
	}).Error)

	group, err := Sync(db, "cn=engineering,ou=groups,dc=example,dc=com", "", "")
	require.NoError(t, err)

	assert.True(t, group.LastSeen.After(stale))
}

func TestSyncRejectsEmptyDN(t *testing.T) {
	db := setupTestDB(t)

	_, err := Sync(db, "   ", "cn", "desc")
	assert.ErrorIs(t, err, ErrEmptyDN)

	_, err = Sync(nil, "cn=x,dc=example,dc=com", "", "")
	assert.ErrorIs(t, err, ErrDBNil)
}

func TestMatchByDN(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&models.Group{DN: "cn=engineering,ou=groups,dc=example,dc=com"}).Error)
	require.NoError(t, db.Create(&models.Group{DN: "CN=Ops,OU=Groups,DC=example,DC=com"}).Error)

	groups, err := MatchByDN(db, []string{
		"cn=engineering,ou=groups,dc=example,dc=com", // exact
		"cn=ops,ou=groups,dc=example,dc=com",         // case differs
		"cn=unknown,ou=groups,dc=example,dc=com",     // not cached
		"  ",                                         // ignored
	})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	dns := []string{groups[0].DN, groups[1].DN}
	assert.Contains(t, dns, "cn=engineering,ou=groups,dc=example,dc=com")
	assert.Contains(t, dns, "CN=Ops,OU=Groups,DC=example,DC=com")
}

func TestMatchByDNEmptyInput(t *testing.T) {
	db := setupTestDB(t)

	groups, err := MatchByDN(db, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestList(t *testing.T) {
	db := setupTestDB(t)

	for _, dn := range []string{
		"cn=vpn,ou=groups,dc=example,dc=com",
		"cn=engineering,ou=groups,dc=example,dc=com",
	} {
		require.NoError(t, db.Create(&models.Group{DN: dn}).Error)
	}

	groups, err := List(db)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "cn=engineering,ou=groups,dc=example,dc=com", groups[0].DN)
}
