package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// reverseMemberAttributes are the candidate group-entry membership attributes
// searched during reverse lookup. All of them are tried and the matches
// merged: a directory may legitimately record membership under more than one
// attribute.
var reverseMemberAttributes = []string{"member", "uniqueMember", "memberUid"}

// UserGroups computes the full, de-duplicated set of group DNs for a user by
// combining the user entry's own group references (forward lookup) with a
// reverse search across group entries. The result is sorted.
//
// Directories vary in whether membership is recorded on the user entry, the
// group entry, or both; relying on a single path silently under-authorizes
// some topologies.
//
// An error is returned only when the forward lookup itself fails. Reverse
// phase failures degrade to the forward-derived result: a failing candidate
// attribute is skipped, a failing connection aborts the whole reverse phase.
func (s *Service) UserGroups(loginID string) ([]string, error) {
	principal, err := s.SearchUser(loginID)
	if err != nil {
		return nil, fmt.Errorf("group lookup for %q: %w", loginID, err)
	}

	seen := make(map[string]struct{})
	for _, g := range principal.Groups {
		if g = strings.TrimSpace(g); g != "" {
			seen[g] = struct{}{}
		}
	}

	// Without a DN there is no identity to match group entries against.
	if principal.DN == "" {
		log.Warn().Str("uid", loginID).Msg("user entry has no DN, skipping reverse group lookup")

		return sortedKeys(seen), nil
	}

	cfg := s.Resolve()

	groupRoot := cfg.GroupRoot()
	if groupRoot == "" {
		log.Debug().Str("uid", loginID).Msg("no group search root configured, skipping reverse lookup")

		return sortedKeys(seen), nil
	}

	conn, errDial := s.dial(cfg, cfg.BindDN, cfg.BindPassword)
	if errDial != nil {
		log.Warn().Err(errDial).Str("uid", loginID).Msg("reverse group lookup unavailable")

		return sortedKeys(seen), nil
	}

	defer closeConn(conn)

	for _, attr := range reverseMemberAttributes {
		filter := fmt.Sprintf("(&%s(|(%s=%s)(%s=%s)))",
			cfg.GroupFilter,
			attr, ldap.EscapeFilter(principal.DN),
			attr, ldap.EscapeFilter(loginID),
		)

		req := ldap.NewSearchRequest(
			groupRoot,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			0, // Size limit: unbounded
			cfg.SearchTimeout,
			false,
			filter,
			[]string{"cn"},
			nil,
		)

		res, errSearch := conn.Search(req)
		if errSearch != nil {
			log.Debug().Err(errSearch).
				Str("uid", loginID).
				Str("attribute", attr).
				Msg("reverse group lookup candidate failed")

			continue
		}

		for _, entry := range res.Entries {
			if dn := strings.TrimSpace(entry.DN); dn != "" {
				seen[dn] = struct{}{}
			}
		}
	}

	groups := sortedKeys(seen)

	log.Debug().
		Str("uid", loginID).
		Int("forward", len(principal.Groups)).
		Int("total", len(groups)).
		Msg("resolved user groups")

	return groups, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}

	sort.Strings(out)

	return out
}
