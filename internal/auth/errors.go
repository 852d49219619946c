package auth

import "errors"

var (
	// ErrMissingCredentials is returned when the login id or secret is empty.
	ErrMissingCredentials = errors.New("username and password required")

	// ErrInvalidCredentials is returned for every credential failure. The
	// message never reveals whether the account exists.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrServiceUnavailable is returned when the directory is unreachable
	// and the local fallback is disabled by policy.
	ErrServiceUnavailable = errors.New("authentication service unavailable")

	// ErrNoDirectoryAccount is returned when a group refresh is requested
	// for an account without a directory identity.
	ErrNoDirectoryAccount = errors.New("account has no directory identity")
)
