// Package sessionstore defines the durable key/value store that holds the
// client-side session record. The store is shared across every agent process
// using the same profile directory, so all readers must revalidate rather than
// trust cached copies (last writer wins).
package sessionstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key identifies a single field of the session record.
type Key string

const (
	KeyAuthToken    Key = "auth_token"
	KeyUserData     Key = "user_data"
	KeySessionID    Key = "session_id"
	KeyActiveUserID Key = "active_user_id"

	// KeyNeedsYouTubeCredentials is a best-effort hint used to avoid redundant
	// credential checks. It is never authoritative over a live check.
	KeyNeedsYouTubeCredentials Key = "needs_youtube_credentials"

	// KeyHasAIKey caches whether the backend holds an AI API key for the user.
	// Written best-effort after login, cleared on logout.
	KeyHasAIKey Key = "has_gemini_key"
)

// SessionKeys returns the four keys that make up the session record, in the
// order the validator inspects them.
func SessionKeys() []Key {
	return []Key{KeyAuthToken, KeyUserData, KeySessionID, KeyActiveUserID}
}

// Store abstracts the durable session record storage so that the validator,
// monitor and credential gate can be exercised against an in-memory fake.
//
// A missing key reads as an empty string, not an error. A closed store behaves
// like storage outside a browser context: reads return empty values and writes
// do nothing. This is a hard contract, not an optimization.
type Store interface {
	// Get returns the value for key, or "" when the key is absent.
	Get(key Key) (string, error)

	// Set writes a single key.
	Set(key Key, value string) error

	// Remove deletes a single key. Removing an absent key is not an error.
	Remove(key Key) error

	// Apply performs the given sets and removes as one update. Readers never
	// observe a state between the individual mutations.
	Apply(set map[Key]string, remove []Key) error

	// Subscribe registers fn to be called with the key of every mutation made
	// through this store, including mutations from other subscribers' writes.
	// The returned cancel function unregisters fn and is safe to call twice.
	Subscribe(fn func(key Key)) (cancel func())
}

// GenerateSessionID returns a new opaque session identifier, unique with
// overwhelming probability across concurrent logins.
func GenerateSessionID() string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("session_%d_%s", time.Now().UnixMilli(), suffix[:13])
}
