// Package session stores authenticated portal sessions in a pluggable
// storage backend. Session IDs are random bearer tokens handed to the
// browser as a cookie; the session payload never leaves the server.
package session

import (
	"encoding/json"
	"time"

	"github.com/gofiber/storage"

	"github.com/glasspane/glasspane/internal/db/models"
	"github.com/glasspane/glasspane/internal/token"
)

// CookieName is the session cookie handed to the browser.
const CookieName = "glasspane_session"

// Store is the global session storage backend.
var Store storage.Storage

// Data represents the session data structure.
type Data struct {
	User  models.User `json:"user"`
	Roles []string    `json:"roles"`
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	byteData, err := Store.Get(sessionID)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Delete removes the session for the given session ID.
func Delete(sessionID string) error {
	return Store.Delete(sessionID)
}

// Init initializes the session store with the provided storage backend.
func Init(backend storage.Storage) {
	if backend == nil {
		panic("storage is nil")
	}

	Store = backend
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() string {
	return token.NewSessionID()
}
