package session

import (
	"github.com/postsiva/automator-agent/sessionstore"
)

// Reasons returned for each invalid-session cause. Forced-logout paths always
// surface one of these so the user is told why, never a generic error.
const (
	ReasonNoAuthToken    = "No authentication token found"
	ReasonNoUserData     = "No user data found"
	ReasonNoSessionID    = "No session ID found"
	ReasonNoActiveUserID = "No active user ID found"
	ReasonUserMismatch   = "Session user mismatch - another user may have logged in"
)

// Snapshot is one read of the four session record fields. Snapshots are taken
// fresh for every validation; nothing caches them.
type Snapshot struct {
	AuthToken    string
	User         *User
	SessionID    string
	ActiveUserID string
}

// Empty reports whether no session record exists at all (as opposed to a
// partial or conflicting one).
func (s Snapshot) Empty() bool {
	return s.AuthToken == "" && s.User == nil && s.SessionID == "" && s.ActiveUserID == ""
}

// Verdict is the result of validating a snapshot. Reason is set only when
// Valid is false.
type Verdict struct {
	Valid  bool
	Reason string
}

// ReadSnapshot reads the current session record from the store.
func ReadSnapshot(store sessionstore.Store) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.AuthToken, err = store.Get(sessionstore.KeyAuthToken); err != nil {
		return Snapshot{}, err
	}
	raw, err := store.Get(sessionstore.KeyUserData)
	if err != nil {
		return Snapshot{}, err
	}
	snap.User = UnmarshalUser(raw)
	if snap.SessionID, err = store.Get(sessionstore.KeySessionID); err != nil {
		return Snapshot{}, err
	}
	if snap.ActiveUserID, err = store.Get(sessionstore.KeyActiveUserID); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Validate checks a session snapshot and returns a verdict with the reason for
// any failure. Checks short-circuit in order: token, profile, session id,
// active user id, then the cross-login mismatch between the active user id and
// the profile id. It is a pure function with no side effects.
func Validate(snap Snapshot) Verdict {
	if snap.AuthToken == "" {
		return Verdict{Valid: false, Reason: ReasonNoAuthToken}
	}
	if snap.User == nil {
		return Verdict{Valid: false, Reason: ReasonNoUserData}
	}
	if snap.SessionID == "" {
		return Verdict{Valid: false, Reason: ReasonNoSessionID}
	}
	if snap.ActiveUserID == "" {
		return Verdict{Valid: false, Reason: ReasonNoActiveUserID}
	}
	if snap.ActiveUserID != snap.User.ID {
		return Verdict{Valid: false, Reason: ReasonUserMismatch}
	}
	return Verdict{Valid: true}
}

// ValidateStore reads a fresh snapshot and validates it. Store read failures
// are treated as an invalid session rather than surfaced as errors; logout is
// the safe response to any authentication inconsistency.
func ValidateStore(store sessionstore.Store) Verdict {
	snap, err := ReadSnapshot(store)
	if err != nil {
		return Verdict{Valid: false, Reason: ReasonNoAuthToken}
	}
	return Validate(snap)
}
