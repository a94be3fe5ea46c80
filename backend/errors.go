package backend

import (
	"errors"
	"fmt"
)

// Sentinel errors distinguishing transport failure classes. APIError wraps
// the matching sentinel so callers can branch with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrUnreachable  = errors.New("backend unreachable")

	// MissingAuthURLErr is returned when the handshake endpoint answers
	// without an authorization URL. Surfaced immediately, never retried
	// automatically.
	MissingAuthURLErr = errors.New("authorization URL was not provided by the server")
)

// APIError is an HTTP error response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error: status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend error: status %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 401:
		return ErrUnauthorized
	case e.StatusCode == 429:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServer
	}
	return nil
}

// LoginErrorMessage converts a login failure into the message shown to the
// user, distinguished by the failure class.
func LoginErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "Invalid email or password."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts. Please wait and try again."
	case errors.Is(err, ErrServer):
		return "Server error during login. Please try again later."
	case errors.Is(err, ErrUnreachable):
		return "Network error. Please check your connection and try again."
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return "Login failed. Please try again."
}
