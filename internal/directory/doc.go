// Package directory implements the portal's identity resolution against an
// LDAP-style directory service.
//
// The package covers four concerns:
//
//   - configuration resolution: the persisted administrator override wins
//     over the environment defaults (ResolveConfig)
//   - connection management with the transport security policy: implicit TLS
//     for ldaps:// URLs, a StartTLS upgrade for ldap:// URLs when TLS is
//     required, and mandatory CA validation (Connect)
//   - user lookup and credential verification (SearchUser, AuthenticateUser)
//   - group membership resolution combining the user entry's own group
//     references with a reverse search across group entries (UserGroups)
//
// Connections are scoped to a single logical operation and closed on every
// exit path; they are never pooled. The directory client is reached through
// the small Conn interface so tests can substitute a fake directory.
//
// Error handling follows a strict boundary rule: lookup failures collapse
// into ErrInvalidCredentials at the authentication entry points so callers
// cannot distinguish an unknown account from a wrong password. Raw directory
// diagnostics are reserved for the administrator test endpoints.
package directory
