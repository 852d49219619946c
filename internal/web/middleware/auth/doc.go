// Package auth provides session resolution and access-gating middleware.
//
// Middleware resolves the session cookie into the current user and role set
// for every request; RequireUser and RequireAdmin gate individual routes.
// Resolution is passive: requests without a valid session simply carry no
// user, and each handler decides whether that is acceptable.
package auth
