package directory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glasspane/glasspane/internal/config"
)

// fakeConn is an in-memory directory. User entries are keyed by uid; group
// entries match when the reverse-lookup filter references one of their member
// values. Requests are recorded for assertions.
type fakeConn struct {
	users    map[string]*ldap.Entry
	groups   []*ldap.Entry
	requests []*ldap.SearchRequest
}

func (c *fakeConn) Bind(_, _ string) error { return nil }
func (c *fakeConn) Close() error           { return nil }

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.requests = append(c.requests, req)

	res := &ldap.SearchResult{}

	if strings.Contains(req.Filter, "objectClass=group") {
		for _, g := range c.groups {
			for _, attr := range []string{"member", "uniqueMember", "memberUid"} {
				for _, v := range g.GetAttributeValues(attr) {
					if strings.Contains(req.Filter, "("+attr+"="+ldap.EscapeFilter(v)+")") {
						res.Entries = append(res.Entries, g)
					}
				}
			}
		}

		return res, nil
	}

	for uid, entry := range c.users {
		if strings.Contains(req.Filter, "(uid="+ldap.EscapeFilter(uid)+")") {
			res.Entries = append(res.Entries, entry)
		}
	}

	return res, nil
}

// bindRecord remembers the identity each dial bound as.
type bindRecord struct {
	dn     string
	secret string
}

func testService(conn *fakeConn, passwords map[string]string, binds *[]bindRecord) *Service {
	svc := NewService(nil, config.Directory{
		URL:    "ldap://directory.example.com",
		BindDN: "cn=svc,dc=example,dc=com",
		BaseDN: "dc=example,dc=com",
	})

	svc.SetDialer(func(_ Config, bindDN, bindPassword string) (Conn, error) {
		if binds != nil {
			*binds = append(*binds, bindRecord{dn: bindDN, secret: bindPassword})
		}

		if bindDN != "" && passwords != nil {
			want, ok := passwords[bindDN]
			if !ok || want != bindPassword {
				return nil, fmt.Errorf("%w: invalid credentials", ErrBindFailed)
			}
		}

		return conn, nil
	})

	return svc
}

func directoryAlice() *fakeConn {
	return &fakeConn{
		users: map[string]*ldap.Entry{
			"alice": ldap.NewEntry("uid=alice,ou=people,dc=example,dc=com", map[string][]string{
				"cn":          {"Alice Example"},
				"displayName": {"Alice"},
				"mail":        {"alice@example.com"},
				"memberOf": {
					"cn=engineering,ou=groups,dc=example,dc=com",
					"cn=engineering,ou=groups,dc=example,dc=com", // directories may repeat values
				},
			}),
			"bob": ldap.NewEntry("uid=bob,ou=people,dc=example,dc=com", map[string][]string{
				"cn": {"Bob Example"},
			}),
		},
		groups: []*ldap.Entry{
			ldap.NewEntry("cn=vpn,ou=groups,dc=example,dc=com", map[string][]string{
				"cn":     {"vpn"},
				"member": {"uid=alice,ou=people,dc=example,dc=com"},
			}),
			ldap.NewEntry("cn=legacy,ou=groups,dc=example,dc=com", map[string][]string{
				"cn":        {"legacy"},
				"memberUid": {"alice"},
			}),
		},
	}
}

func TestSearchUser(t *testing.T) {
	conn := directoryAlice()
	svc := testService(conn, nil, nil)

	principal, err := svc.SearchUser("alice")
	require.NoError(t, err)

	assert.Equal(t, "uid=alice,ou=people,dc=example,dc=com", principal.DN)
	assert.Equal(t, "alice", principal.UID)
	assert.Equal(t, "Alice Example", principal.CN)
	assert.Equal(t, "Alice", principal.DisplayName)
	assert.Equal(t, "alice@example.com", principal.Email)
	assert.Equal(t, []string{"cn=engineering,ou=groups,dc=example,dc=com"}, principal.Groups,
		"repeated attribute values must be de-duplicated")

	require.Len(t, conn.requests, 1)
	req := conn.requests[0]
	assert.Equal(t, "dc=example,dc=com", req.BaseDN)
	assert.Equal(t, 1, req.SizeLimit)
	assert.Equal(t, DefaultSearchTimeout, req.TimeLimit)
}

func TestSearchUserDisplayNameFallsBackToCN(t *testing.T) {
	svc := testService(directoryAlice(), nil, nil)

	principal, err := svc.SearchUser("bob")
	require.NoError(t, err)

	assert.Equal(t, "Bob Example", principal.DisplayName)
	assert.Empty(t, principal.Groups)
}

func TestSearchUserNotFound(t *testing.T) {
	svc := testService(directoryAlice(), nil, nil)

	_, err := svc.SearchUser("mallory")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearchUserEscapesFilterInput(t *testing.T) {
	conn := directoryAlice()
	svc := testService(conn, nil, nil)

	// A wildcard login id must be treated literally, not as a filter
	// expression matching every entry.
	_, err := svc.SearchUser("*")
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.Len(t, conn.requests, 1)
	assert.NotContains(t, conn.requests[0].Filter, "(uid=*)")
	assert.Contains(t, conn.requests[0].Filter, `\2a`)
}

func TestAuthenticateUser(t *testing.T) {
	var binds []bindRecord

	passwords := map[string]string{
		"cn=svc,dc=example,dc=com":              "svc-secret",
		"uid=alice,ou=people,dc=example,dc=com": "correct horse",
	}

	svc := testService(directoryAlice(), passwords, &binds)
	svc.env.BindPassword = "svc-secret"

	principal, err := svc.AuthenticateUser("alice", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "uid=alice,ou=people,dc=example,dc=com", principal.DN)

	// The search runs as the service account, the verification bind as the
	// located entry's DN.
	require.Len(t, binds, 2)
	assert.Equal(t, "cn=svc,dc=example,dc=com", binds[0].dn)
	assert.Equal(t, "uid=alice,ou=people,dc=example,dc=com", binds[1].dn)
	assert.Equal(t, "correct horse", binds[1].secret)
}

func TestAuthenticateUserWrongPassword(t *testing.T) {
	passwords := map[string]string{
		"cn=svc,dc=example,dc=com":              "svc-secret",
		"uid=alice,ou=people,dc=example,dc=com": "correct horse",
	}

	svc := testService(directoryAlice(), passwords, nil)
	svc.env.BindPassword = "svc-secret"

	_, err := svc.AuthenticateUser("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUserUnknownAccount(t *testing.T) {
	svc := testService(directoryAlice(), nil, nil)

	_, err := svc.AuthenticateUser("mallory", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown account must be indistinguishable from wrong password")
}

func TestAuthenticateUserDirectoryDown(t *testing.T) {
	svc := NewService(nil, config.Directory{URL: "ldap://directory.example.com", BaseDN: "dc=example,dc=com"})
	svc.SetDialer(func(_ Config, _, _ string) (Conn, error) {
		return nil, fmt.Errorf("%w: connection refused", ErrConnectionFailed)
	})

	_, err := svc.AuthenticateUser("alice", "secret")
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.True(t, IsConnectionError(err))
}

func TestSearchUserNotConfigured(t *testing.T) {
	svc := NewService(nil, config.Directory{URL: "ldap://directory.example.com"})

	_, err := svc.SearchUser("alice")
	assert.ErrorIs(t, err, ErrNotConfigured, "a connection URL without a search root is unusable")
}
