package users

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-ldap/ldap/v3"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/auth"
	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/directory"
	authmw "github.com/glasspane/glasspane/internal/web/middleware/auth"
	"github.com/glasspane/glasspane/internal/web/session"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.AuditLog{},
		&models.DirectoryConfig{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func setupApp(t *testing.T, db *gorm.DB, dial directory.DialFunc) *fiber.App {
	t.Helper()

	session.Init(memory.New())

	dir := directory.NewService(db, config.Directory{})
	if dial != nil {
		dir.SetDialer(dial)
	}

	app := fiber.New()
	app.Use(authmw.Middleware)

	login := auth.NewService(db, dir, config.Auth{})
	require.NoError(t, Handler.Init(app, &config.Config{}, db, login))

	return app
}

func userCookie(t *testing.T, db *gorm.DB, uid string, admin bool) (*http.Cookie, models.User) {
	t.Helper()

	user := models.User{UID: uid, IsLocalAdmin: admin}
	require.NoError(t, db.Create(&user).Error)

	var roles []string
	if admin {
		roles = []string{"admin"}
	}

	sessionID := session.GenerateSessionID()
	sessData := &session.Data{User: user, Roles: roles}
	require.NoError(t, sessData.Write(sessionID, time.Hour))

	return &http.Cookie{Name: session.CookieName, Value: sessionID}, user
}

func jsonRequest(method, target, body string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	if cookie != nil {
		req.AddCookie(cookie)
	}

	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func enableDirectory(t *testing.T, db *gorm.DB) {
	t.Helper()

	require.NoError(t, db.Create(&models.DirectoryConfig{
		ID:      models.DirectoryConfigID,
		URL:     "ldap://directory.example.com",
		BaseDN:  "dc=example,dc=com",
		Enabled: true,
	}).Error)
}

// fakeConn serves a single directory user with one forward and one reverse
// group membership.
type fakeConn struct{}

func (c *fakeConn) Bind(_, _ string) error { return nil }
func (c *fakeConn) Close() error           { return nil }

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	res := &ldap.SearchResult{}

	if strings.Contains(req.Filter, "objectClass=group") {
		if strings.Contains(req.Filter,
			"(member="+ldap.EscapeFilter("uid=alice,ou=people,dc=example,dc=com")+")") {
			res.Entries = append(res.Entries, ldap.NewEntry(
				"cn=vpn,ou=groups,dc=example,dc=com",
				map[string][]string{"cn": {"vpn"}},
			))
		}

		return res, nil
	}

	if strings.Contains(req.Filter, "(uid=alice)") {
		res.Entries = append(res.Entries, ldap.NewEntry(
			"uid=alice,ou=people,dc=example,dc=com",
			map[string][]string{
				"cn":       {"Alice Example"},
				"memberOf": {"cn=engineering,ou=groups,dc=example,dc=com"},
			},
		))
	}

	return res, nil
}

func aliceDialer() directory.DialFunc {
	return func(_ directory.Config, _, _ string) (directory.Conn, error) {
		return &fakeConn{}, nil
	}
}

func downDialer() directory.DialFunc {
	return func(_ directory.Config, _, _ string) (directory.Conn, error) {
		return nil, fmt.Errorf("%w: connection refused", directory.ErrConnectionFailed)
	}
}

func TestListRequiresAdmin(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db, nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, Path, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	cookie, _ := userCookie(t, db, "bob", false)

	resp, err = app.Test(jsonRequest(fiber.MethodGet, Path, "", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db, nil)
	cookie, _ := userCookie(t, db, "root", true)

	require.NoError(t, db.Create(&models.User{UID: "alice", Disabled: true}).Error)

	resp, err := app.Test(jsonRequest(fiber.MethodGet, Path, "", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	accounts, ok := body["users"].([]any)
	require.True(t, ok)
	require.Len(t, accounts, 2)

	// Ordered by uid: alice before root.
	first, ok := accounts[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice", first["uid"])
	assert.Equal(t, true, first["disabled"])
}

func TestUpdateTogglesFlags(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db, nil)
	cookie, _ := userCookie(t, db, "root", true)

	target := models.User{UID: "alice"}
	require.NoError(t, db.Create(&target).Error)

	url := fmt.Sprintf("%s/%d", Path, target.ID)

	resp, err := app.Test(jsonRequest(fiber.MethodPut, url,
		`{"disabled": true, "is_local_admin": true}`, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, target.ID).Error)
	assert.True(t, stored.Disabled)
	assert.True(t, stored.IsLocalAdmin)

	// Re-enabling leaves the untouched flag alone.
	resp, err = app.Test(jsonRequest(fiber.MethodPut, url, `{"disabled": false}`, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&stored, target.ID).Error)
	assert.False(t, stored.Disabled)
	assert.True(t, stored.IsLocalAdmin)
}

func TestUpdateSelfGuards(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db, nil)
	cookie, admin := userCookie(t, db, "root", true)

	url := fmt.Sprintf("%s/%d", Path, admin.ID)

	resp, err := app.Test(jsonRequest(fiber.MethodPut, url, `{"disabled": true}`, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(jsonRequest(fiber.MethodPut, url, `{"is_local_admin": false}`, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, admin.ID).Error)
	assert.False(t, stored.Disabled)
	assert.True(t, stored.IsLocalAdmin)
}

func TestUpdateUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db, nil)
	cookie, _ := userCookie(t, db, "root", true)

	resp, err := app.Test(jsonRequest(fiber.MethodPut, Path+"/4242", `{"disabled": true}`, cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRefreshReplacesCachedGroups(t *testing.T) {
	db := setupTestDB(t)
	enableDirectory(t, db)
	app := setupApp(t, db, aliceDialer())
	cookie, _ := userCookie(t, db, "root", true)

	target := models.User{
		UID:          "alice",
		DN:           "uid=alice,ou=people,dc=example,dc=com",
		CachedGroups: []string{"cn=old,ou=groups,dc=example,dc=com"},
	}
	require.NoError(t, db.Create(&target).Error)

	url := fmt.Sprintf("%s/%d/refresh", Path, target.ID)

	resp, err := app.Test(jsonRequest(fiber.MethodPost, url, "", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, db.First(&stored, target.ID).Error)
	assert.Equal(t, []string{
		"cn=engineering,ou=groups,dc=example,dc=com",
		"cn=vpn,ou=groups,dc=example,dc=com",
	}, stored.CachedGroups)

	// Discovered groups land in the registry.
	var group models.Group
	require.NoError(t, db.Where("dn = ?", "cn=vpn,ou=groups,dc=example,dc=com").
		First(&group).Error)
}

func TestRefreshLocalAccountRefused(t *testing.T) {
	db := setupTestDB(t)
	enableDirectory(t, db)
	app := setupApp(t, db, aliceDialer())
	cookie, _ := userCookie(t, db, "root", true)

	target := models.User{UID: "localonly", IsLocalAdmin: true}
	require.NoError(t, db.Create(&target).Error)

	url := fmt.Sprintf("%s/%d/refresh", Path, target.ID)

	resp, err := app.Test(jsonRequest(fiber.MethodPost, url, "", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRefreshDirectoryDown(t *testing.T) {
	db := setupTestDB(t)
	enableDirectory(t, db)
	app := setupApp(t, db, downDialer())
	cookie, _ := userCookie(t, db, "root", true)

	target := models.User{
		UID:          "alice",
		DN:           "uid=alice,ou=people,dc=example,dc=com",
		CachedGroups: []string{"cn=old,ou=groups,dc=example,dc=com"},
	}
	require.NoError(t, db.Create(&target).Error)

	url := fmt.Sprintf("%s/%d/refresh", Path, target.ID)

	resp, err := app.Test(jsonRequest(fiber.MethodPost, url, "", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	// The stored cache survives the failed refresh.
	var stored models.User
	require.NoError(t, db.First(&stored, target.ID).Error)
	assert.Equal(t, []string{"cn=old,ou=groups,dc=example,dc=com"}, stored.CachedGroups)
}

func TestRefreshUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(t, db, nil)
	cookie, _ := userCookie(t, db, "root", true)

	resp, err := app.Test(jsonRequest(fiber.MethodPost, Path+"/4242/refresh", "", cookie))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
