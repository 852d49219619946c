package directory

import "errors"

var (
	// ErrNotConfigured is returned when no directory connection URL (or no
	// usable search root) is available from either configuration source.
	ErrNotConfigured = errors.New("directory is not configured")

	// ErrMissingCA is returned when TLS is required but no CA certificate
	// path is configured. Raised before any network I/O.
	ErrMissingCA = errors.New("directory CA certificate required when TLS is enabled")

	// ErrConnectionFailed is returned when the directory server cannot be
	// reached or the transport could not be secured.
	ErrConnectionFailed = errors.New("directory connection failed")

	// ErrBindFailed is returned when a bind is rejected. The wrapped text
	// carries the directory's diagnostic but never the attempted secret.
	ErrBindFailed = errors.New("directory bind failed")

	// ErrUserNotFound is returned when a user search yields no entry.
	ErrUserNotFound = errors.New("user not found in directory")

	// ErrInvalidCredentials is the generic credential failure returned by
	// AuthenticateUser. It is deliberately indistinguishable between an
	// unknown account and a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// IsConnectionError reports whether err represents a directory that is
// unusable (unreachable, misconfigured, or rejecting the service bind) as
// opposed to a user-level failure such as bad credentials.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrMissingCA) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrBindFailed)
}
