package directory

import (
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/glasspane/glasspane/internal/config"
	"github.com/glasspane/glasspane/internal/db/models"
)

// Defaults applied to a resolved configuration when the source leaves the
// field empty.
const (
	DefaultUserFilter     = "(|(uid={username})(sAMAccountName={username})(mail={username}))"
	DefaultGroupFilter    = "(objectClass=group)"
	DefaultGroupAttribute = "memberOf"
	DefaultSearchTimeout  = 5
)

// Configuration sources.
const (
	SourceDatabase    = "database"
	SourceEnvironment = "environment"
)

// Config is the resolved directory configuration for one logical operation.
// It is a plain value: resolved once per call and passed explicitly, never
// held as ambient mutable state.
type Config struct {
	URL            string
	UseTLS         bool
	BindDN         string
	BindPassword   string
	BaseDN         string
	UserDN         string
	GroupDN        string
	UserFilter     string
	GroupFilter    string
	GroupAttribute string
	CACert         string
	SearchTimeout  int
	Source         string
}

// Configured reports whether a directory connection URL is present.
func (c Config) Configured() bool {
	return c.URL != ""
}

// UserRoot returns the user search root, falling back to the base root.
func (c Config) UserRoot() string {
	if c.UserDN != "" {
		return c.UserDN
	}

	return c.BaseDN
}

// GroupRoot returns the group search root, falling back to the base root.
func (c Config) GroupRoot() string {
	if c.GroupDN != "" {
		return c.GroupDN
	}

	return c.BaseDN
}

// ResolveConfig returns the effective directory configuration. The persisted
// override record wins field-by-field (secrets included) when it exists, is
// enabled and carries a connection URL; otherwise the environment defaults
// apply. Never fails: an absent configuration resolves to an unconfigured
// value which callers treat as "skip directory auth".
func ResolveConfig(db *gorm.DB, env config.Directory) Config {
	if db != nil {
		var record models.DirectoryConfig

		err := db.Where("id = ? AND enabled = ?", models.DirectoryConfigID, true).
			First(&record).Error

		switch {
		case err == nil && record.URL != "":
			return applyDefaults(Config{
				URL:            record.URL,
				UseTLS:         record.UseTLS,
				BindDN:         record.BindDN,
				BindPassword:   record.BindPassword,
				BaseDN:         record.BaseDN,
				UserDN:         record.UserDN,
				GroupDN:        record.GroupDN,
				UserFilter:     record.UserFilter,
				GroupFilter:    record.GroupFilter,
				GroupAttribute: record.GroupAttribute,
				CACert:         record.CACertPath,
				SearchTimeout:  record.SearchTimeout,
				Source:         SourceDatabase,
			})
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			log.Warn().Err(err).Msg("failed to read directory config record, using environment defaults")
		}
	}

	return applyDefaults(Config{
		URL:            env.URL,
		UseTLS:         env.UseTLS,
		BindDN:         env.BindDN,
		BindPassword:   env.BindPassword,
		BaseDN:         env.BaseDN,
		UserDN:         env.UserDN,
		GroupDN:        env.GroupDN,
		UserFilter:     env.UserFilter,
		GroupFilter:    env.GroupFilter,
		GroupAttribute: env.GroupAttribute,
		CACert:         env.CACert,
		SearchTimeout:  env.SearchTimeout,
		Source:         SourceEnvironment,
	})
}

func applyDefaults(c Config) Config {
	if c.UserFilter == "" {
		c.UserFilter = DefaultUserFilter
	}

	if c.GroupFilter == "" {
		c.GroupFilter = DefaultGroupFilter
	}

	if c.GroupAttribute == "" {
		c.GroupAttribute = DefaultGroupAttribute
	}

	if c.SearchTimeout <= 0 {
		c.SearchTimeout = DefaultSearchTimeout
	}

	return c
}
