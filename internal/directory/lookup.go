package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
)

// Principal is the transient result of a successful directory lookup. Only
// the fields copied into the local user cache outlive the lookup call.
type Principal struct {
	// DN is the entry's distinguished name.
	DN string
	// UID is the login identifier the lookup was performed with.
	UID string
	// CN is the entry's common name.
	CN string
	// DisplayName falls back to CN when the entry carries no displayName.
	DisplayName string
	// Email is the entry's mail attribute.
	Email string
	// Groups is the raw forward-lookup group reference list, trimmed and
	// de-duplicated.
	Groups []string
}

// Service performs directory lookups against the resolved configuration.
type Service struct {
	db   *gorm.DB
	env  config.Directory
	dial DialFunc
}

// NewService creates a directory lookup service. The database supplies the
// persisted configuration override and env the defaults.
func NewService(db *gorm.DB, env config.Directory) *Service {
	return &Service{
		db:   db,
		env:  env,
		dial: Connect,
	}
}

// SetDialer replaces the connection factory. Used by tests and by the admin
// test endpoints to probe explicit settings.
func (s *Service) SetDialer(dial DialFunc) {
	s.dial = dial
}

// Resolve returns the effective configuration for one logical operation.
func (s *Service) Resolve() Config {
	return ResolveConfig(s.db, s.env)
}

// SearchUser locates exactly one directory entry for the given login id
// using the configured filter template and extracts the normalized profile
// attributes plus the raw group references.
func (s *Service) SearchUser(loginID string) (*Principal, error) {
	cfg := s.Resolve()

	userRoot := cfg.UserRoot()
	if userRoot == "" {
		return nil, fmt.Errorf("%w: no user or base search root", ErrNotConfigured)
	}

	// The service account performs the search; the end-user's own
	// credentials are only used for the verification bind later.
	conn, err := s.dial(cfg, cfg.BindDN, cfg.BindPassword)
	if err != nil {
		return nil, err
	}

	defer closeConn(conn)

	filter := strings.ReplaceAll(cfg.UserFilter, "{username}", ldap.EscapeFilter(loginID))

	req := ldap.NewSearchRequest(
		userRoot,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1, // Size limit: exactly one entry wanted
		cfg.SearchTimeout,
		false,
		filter,
		[]string{"cn", "mail", "displayName", cfg.GroupAttribute},
		nil,
	)

	res, errSearch := conn.Search(req)
	if errSearch != nil {
		// The server reports size limit exceeded when more entries match;
		// the first entry is still usable.
		if !ldap.IsErrorWithCode(errSearch, ldap.LDAPResultSizeLimitExceeded) ||
			res == nil || len(res.Entries) == 0 {
			return nil, fmt.Errorf("%w: user search: %v", ErrConnectionFailed, errSearch)
		}
	}

	if res == nil || len(res.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, loginID)
	}

	return principalFromEntry(res.Entries[0], loginID, cfg.GroupAttribute), nil
}

// AuthenticateUser verifies the given credentials by locating the user entry
// and then binding as its DN. Both an unknown account and a rejected bind
// surface as ErrInvalidCredentials; directory diagnostics never reach the
// caller here.
func (s *Service) AuthenticateUser(loginID, secret string) (*Principal, error) {
	principal, err := s.SearchUser(loginID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}

		return nil, err
	}

	cfg := s.Resolve()

	conn, errBind := s.dial(cfg, principal.DN, secret)
	if errBind != nil {
		if errors.Is(errBind, ErrBindFailed) {
			log.Warn().Str("uid", loginID).Msg("directory rejected user credentials")

			return nil, ErrInvalidCredentials
		}

		return nil, errBind
	}

	closeConn(conn)

	return principal, nil
}

// TestConnection opens an anonymous connection using the resolved
// configuration. Administrator test endpoint only: the returned error carries
// raw directory diagnostics.
func (s *Service) TestConnection() error {
	conn, err := s.dial(s.Resolve(), "", "")
	if err != nil {
		return err
	}

	closeConn(conn)

	return nil
}

// TestBind verifies a service account bind, defaulting to the configured
// identity when the arguments are empty. Administrator test endpoint only.
func (s *Service) TestBind(bindDN, bindPassword string) error {
	cfg := s.Resolve()

	if bindDN == "" {
		bindDN = cfg.BindDN
		bindPassword = cfg.BindPassword
	}

	if bindDN == "" {
		return fmt.Errorf("%w: no bind identity configured", ErrNotConfigured)
	}

	conn, err := s.dial(cfg, bindDN, bindPassword)
	if err != nil {
		return err
	}

	closeConn(conn)

	return nil
}

func principalFromEntry(entry *ldap.Entry, loginID, groupAttribute string) *Principal {
	cn := entry.GetAttributeValue("cn")

	displayName := entry.GetAttributeValue("displayName")
	if displayName == "" {
		displayName = cn
	}

	groups := toStringList(entry.GetEqualFoldAttributeValues(groupAttribute))
	if len(groups) == 0 {
		log.Debug().
			Str("uid", loginID).
			Str("attribute", groupAttribute).
			Msg("user entry carries no group references")
	}

	return &Principal{
		DN:          entry.DN,
		UID:         loginID,
		CN:          cn,
		DisplayName: displayName,
		Email:       entry.GetAttributeValue("mail"),
		Groups:      groups,
	}
}

// toStringList normalizes a directory attribute value into a list of
// trimmed, non-empty strings. Directories return attributes as absent,
// single valued or multi valued; the rest of the system only ever sees
// lists.
func toStringList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if _, dup := seen[v]; dup {
			continue
		}

		seen[v] = struct{}{}

		out = append(out, v)
	}

	return out
}
