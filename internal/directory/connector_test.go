package directory

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectNotConfigured(t *testing.T) {
	_, err := Connect(Config{}, "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConnectMissingCA(t *testing.T) {
	cfg := Config{
		URL:    "ldap://directory.example.com",
		UseTLS: true,
	}

	// Fails before any network I/O.
	_, err := Connect(cfg, "", "")
	assert.ErrorIs(t, err, ErrMissingCA)
}

func TestNewTLSConfigUnreadableCA(t *testing.T) {
	cfg := Config{
		URL:    "ldaps://directory.example.com:636",
		UseTLS: true,
		CACert: filepath.Join(t.TempDir(), "missing.pem"),
	}

	_, err := newTLSConfig(cfg)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestNewTLSConfigRejectsGarbageCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	cfg := Config{
		URL:    "ldaps://directory.example.com:636",
		UseTLS: true,
		CACert: path,
	}

	_, err := newTLSConfig(cfg)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestNewTLSConfigServerName(t *testing.T) {
	cfg := Config{URL: "ldaps://directory.example.com:636"}

	tlsConfig, err := newTLSConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "directory.example.com", tlsConfig.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
}
