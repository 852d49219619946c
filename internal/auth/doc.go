// Package auth implements the portal's login decision and authorization.
//
// The login flow is directory-first with an optional local fallback:
//
//	Start → DirectoryAttempt → LocalFallbackAttempt → Success | Rejected
//
// A directory outage falls back to local admin accounts only when the
// fallback policy allows it; otherwise the login fails closed with a
// service-unavailable outcome. Credential failures are always generic:
// the caller cannot learn whether an account exists.
//
// On success the user's cached profile and group memberships are
// synchronized from the directory, discovered groups are registered in the
// local cache, and the effective roles are resolved through the group→role
// mapping table. Group sync and role resolution are fail-soft: their
// failures degrade the session to fewer roles instead of blocking
// authentication.
//
// Authorization is purely group→role: GetUserRoles does not special-case
// the local-admin flag; the login coordinator appends the admin role for
// local admins at the decision layer.
package auth
