package session

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// User is the profile stored in the session record. Field names follow the
// backend's wire format; the profile is owned by whichever login flow last
// wrote it.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MarshalUser serializes a profile for the user_data store key.
func MarshalUser(user User) (string, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return "", errors.Wrap(err, "[MarshalUser] json.Marshal")
	}
	return string(data), nil
}

// UnmarshalUser parses the user_data store value. An empty or corrupt value
// yields nil, matching the store contract that bad cached data reads as
// absent.
func UnmarshalUser(raw string) *User {
	if raw == "" {
		return nil
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil
	}
	return &user
}
