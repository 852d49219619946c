package directory

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

// Conn is the subset of the directory client used by the portal. *ldap.Conn
// satisfies it; tests substitute a fake directory.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// DialFunc opens a connection for the given resolved configuration, bound as
// bindDN when non-empty and anonymous otherwise.
type DialFunc func(cfg Config, bindDN, bindPassword string) (Conn, error)

// Connect establishes a connection to the directory server, enforcing the
// transport security policy: ldaps:// URLs use implicit TLS; ldap:// URLs
// with TLS required are upgraded via StartTLS immediately after the socket
// opens, before any bind. Server certificates are validated against the
// configured CA. The caller owns the connection and must close it on every
// exit path.
func Connect(cfg Config, bindDN, bindPassword string) (Conn, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	useSSL := strings.HasPrefix(cfg.URL, "ldaps://")

	var tlsConfig *tls.Config

	if cfg.UseTLS || useSSL {
		// Fail before any network I/O when the CA is missing.
		if cfg.UseTLS && cfg.CACert == "" {
			return nil, ErrMissingCA
		}

		var err error
		if tlsConfig, err = newTLSConfig(cfg); err != nil {
			return nil, err
		}
	}

	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	// Upgrade plaintext connections when TLS is required.
	if !useSSL && cfg.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			closeConn(conn)

			return nil, fmt.Errorf("%w: starttls: %v", ErrConnectionFailed, errStartTLS)
		}
	}

	if cfg.SearchTimeout > 0 {
		conn.SetTimeout(time.Duration(cfg.SearchTimeout) * time.Second)
	}

	if bindDN != "" {
		if errBind := conn.Bind(bindDN, bindPassword); errBind != nil {
			closeConn(conn)

			// The diagnostic text from the server is kept, the secret is not.
			return nil, fmt.Errorf("%w: %v", ErrBindFailed, errBind)
		}
	}

	return conn, nil
}

// newTLSConfig builds a strict server-validation TLS config from the
// configured CA certificate.
func newTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		tlsConfig.ServerName = u.Hostname()
	}

	if cfg.CACert == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(cfg.CACert)
	if err != nil {
		return nil, fmt.Errorf("%w: reading CA certificate: %v", ErrConnectionFailed, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%w: no usable certificate in %s", ErrConnectionFailed, cfg.CACert)
	}

	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}

func closeConn(conn Conn) {
	if errClose := conn.Close(); errClose != nil {
		log.Warn().Err(errClose).Msg("failed to close directory connection")
	}
}
