package config

import (
	"time"

	"github.com/glasspane/glasspane/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Directory Directory
	Auth      Auth
	Redis     Redis
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain       string  // domain name for the webserver
	Port         int     // listening port for the webserver
	ShutDownTime int     // wait time for shutdown
	URL          string  // base url for the webserver
	Session      Session // session settings
}

// Directory holds the environment defaults for the directory connection.
// A persisted, enabled override record takes precedence over every field.
type Directory struct {
	URL            string // ldap:// or ldaps:// connection URL
	UseTLS         bool   // require transport security (CA certificate mandatory)
	BindDN         string // service account DN for searches
	BindPassword   string // service account secret
	BaseDN         string // root of all searches
	UserDN         string // user search root, BaseDN when empty
	GroupDN        string // group search root, BaseDN when empty
	UserFilter     string // user filter template with {username} placeholder
	GroupFilter    string // filter selecting group entries in reverse lookup
	GroupAttribute string // user-entry attribute holding group references
	CACert         string // CA certificate path for server validation
	SearchTimeout  int    // search time limit in seconds
}

// Auth holds authentication policy defaults.
type Auth struct {
	// AllowLocalFallback permits local admin logins when the directory is
	// unavailable or rejects the credentials. The persisted webapp config
	// record overrides this default when present.
	AllowLocalFallback bool
	// InitialAdminUsername and InitialAdminPassword seed a local admin
	// account on first start when no admin exists. The password is hashed
	// at seed time; accounts without a hash cannot log in.
	InitialAdminUsername string
	InitialAdminPassword string
}

// Redis holds the connection for the login rate-limit counter store.
type Redis struct {
	URL             string // redis connection URL, empty disables rate limiting
	LoginRateLimit  int    // max login attempts per client address and period
	LoginRatePeriod int    // period in seconds
}
