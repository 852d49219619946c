package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/db/models"
)

func seedRoleMapping(t *testing.T, db *gorm.DB, groupDN, roleName string) {
	t.Helper()

	group := models.Group{DN: groupDN}
	require.NoError(t, db.Create(&group).Error)

	role := models.Role{Name: roleName}
	require.NoError(t, db.Create(&role).Error)

	require.NoError(t, db.Create(&models.RoleMapping{GroupID: group.ID, RoleID: role.ID}).Error)
}

func TestGetUserRoles(t *testing.T) {
	db := setupTestDB(t)

	seedRoleMapping(t, db, "cn=engineering,ou=groups,dc=example,dc=com", "operator")

	user := models.User{
		UID:          "alice",
		CachedGroups: []string{"cn=engineering,ou=groups,dc=example,dc=com"},
	}
	require.NoError(t, db.Create(&user).Error)

	assert.Equal(t, []string{"operator"}, GetUserRoles(db, user.ID))
}

func TestGetUserRolesCaseInsensitiveDN(t *testing.T) {
	db := setupTestDB(t)

	seedRoleMapping(t, db, "CN=Engineering,OU=Groups,DC=example,DC=com", "operator")

	user := models.User{
		UID:          "alice",
		CachedGroups: []string{"cn=engineering,ou=groups,dc=example,dc=com"},
	}
	require.NoError(t, db.Create(&user).Error)

	assert.Equal(t, []string{"operator"}, GetUserRoles(db, user.ID))
}

func TestGetUserRolesDistinct(t *testing.T) {
	db := setupTestDB(t)

	// Two groups mapped to the same role yield it once.
	role := models.Role{Name: "operator"}
	require.NoError(t, db.Create(&role).Error)

	for _, dn := range []string{
		"cn=engineering,ou=groups,dc=example,dc=com",
		"cn=sre,ou=groups,dc=example,dc=com",
	} {
		group := models.Group{DN: dn}
		require.NoError(t, db.Create(&group).Error)
		require.NoError(t, db.Create(&models.RoleMapping{GroupID: group.ID, RoleID: role.ID}).Error)
	}

	user := models.User{
		UID: "alice",
		CachedGroups: []string{
			"cn=engineering,ou=groups,dc=example,dc=com",
			"cn=sre,ou=groups,dc=example,dc=com",
		},
	}
	require.NoError(t, db.Create(&user).Error)

	assert.Equal(t, []string{"operator"}, GetUserRoles(db, user.ID))
}

func TestGetUserRolesDisabledUser(t *testing.T) {
	db := setupTestDB(t)

	seedRoleMapping(t, db, "cn=engineering,ou=groups,dc=example,dc=com", "operator")

	user := models.User{
		UID:          "alice",
		Disabled:     true,
		CachedGroups: []string{"cn=engineering,ou=groups,dc=example,dc=com"},
	}
	require.NoError(t, db.Create(&user).Error)

	assert.Empty(t, GetUserRoles(db, user.ID))
}

func TestGetUserRolesUnknownUser(t *testing.T) {
	db := setupTestDB(t)

	assert.Empty(t, GetUserRoles(db, 4242))
}

func TestGetUserRolesUnmappedGroups(t *testing.T) {
	db := setupTestDB(t)

	group := models.Group{DN: "cn=engineering,ou=groups,dc=example,dc=com"}
	require.NoError(t, db.Create(&group).Error)

	user := models.User{
		UID:          "alice",
		CachedGroups: []string{"cn=engineering,ou=groups,dc=example,dc=com"},
	}
	require.NoError(t, db.Create(&user).Error)

	assert.Empty(t, GetUserRoles(db, user.ID))
}
