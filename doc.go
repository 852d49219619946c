// Package main provides the entry point for the Glasspane access portal.
// It runs a Fiber web server exposing a JSON API for directory-backed
// authentication, group-to-role authorization and a gated catalog of
// internal sites. The portal persists its state with gorm and keeps
// server-side sessions in a storage backend on the same database.
package main
