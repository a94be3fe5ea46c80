package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postsiva/automator-agent/backend"
)

// newTestClient spins up a scripted backend and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc, options ...backend.ClientOption) *backend.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return backend.New(backend.Config{BaseURL: server.URL}, options...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestClientErrorClasses(t *testing.T) {
	statusHandler := func(status int, detail string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, status, map[string]string{"detail": detail})
		}
	}

	t.Run("401 maps to ErrUnauthorized", func(t *testing.T) {
		client := newTestClient(t, statusHandler(http.StatusUnauthorized, "Incorrect email or password"))
		_, _, err := client.Login(context.Background(), "a@b.com", "wrong")
		require.ErrorIs(t, err, backend.ErrUnauthorized)
		require.Equal(t, "Invalid email or password.", backend.LoginErrorMessage(err))
	})

	t.Run("429 maps to ErrRateLimited", func(t *testing.T) {
		client := newTestClient(t, statusHandler(http.StatusTooManyRequests, ""))
		_, _, err := client.Login(context.Background(), "a@b.com", "pw")
		require.ErrorIs(t, err, backend.ErrRateLimited)
		require.Equal(t, "Too many attempts. Please wait and try again.", backend.LoginErrorMessage(err))
	})

	t.Run("500 maps to ErrServer", func(t *testing.T) {
		client := newTestClient(t, statusHandler(http.StatusInternalServerError, ""))
		_, _, err := client.Login(context.Background(), "a@b.com", "pw")
		require.ErrorIs(t, err, backend.ErrServer)
		require.Equal(t, "Server error during login. Please try again later.", backend.LoginErrorMessage(err))
	})

	t.Run("connection failure maps to ErrUnreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close() // nothing listens any more
		client := backend.New(backend.Config{BaseURL: server.URL})

		_, _, err := client.Login(context.Background(), "a@b.com", "pw")
		require.ErrorIs(t, err, backend.ErrUnreachable)
		require.Equal(t, "Network error. Please check your connection and try again.", backend.LoginErrorMessage(err))
	})

	t.Run("other statuses keep the backend detail", func(t *testing.T) {
		client := newTestClient(t, statusHandler(http.StatusUnprocessableEntity, "email already registered"))
		_, _, err := client.Login(context.Background(), "a@b.com", "pw")
		require.Equal(t, "email already registered", backend.LoginErrorMessage(err))

		var apiErr *backend.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	})
}

func TestClientAuthorizationHeader(t *testing.T) {
	t.Run("token source is consulted per request", func(t *testing.T) {
		var gotAuth string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			writeJSON(t, w, http.StatusOK, nil)
		}, backend.WithTokenSource(func() string { return "live-token" }))

		_, err := client.HasAIKey(context.Background())
		require.NoError(t, err)
		require.Equal(t, "Bearer live-token", gotAuth)
	})

	t.Run("empty token sends no header", func(t *testing.T) {
		var gotAuth string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			writeJSON(t, w, http.StatusOK, nil)
		}, backend.WithTokenSource(func() string { return "" }))

		_, err := client.HasAIKey(context.Background())
		require.NoError(t, err)
		require.Empty(t, gotAuth)
	})
}

func TestClientOnUnauthorized(t *testing.T) {
	reject := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"detail": "token expired"})
	}

	t.Run("fires for an authenticated request", func(t *testing.T) {
		fired := 0
		client := newTestClient(t, reject,
			backend.WithTokenSource(func() string { return "stale-token" }),
			backend.WithOnUnauthorized(func() { fired++ }),
		)

		_, err := client.HasAIKey(context.Background())
		require.ErrorIs(t, err, backend.ErrUnauthorized)
		require.Equal(t, 1, fired)
	})

	t.Run("never fires for an anonymous request", func(t *testing.T) {
		// A rejected login is a wrong password, not an expired session.
		fired := 0
		client := newTestClient(t, reject,
			backend.WithOnUnauthorized(func() { fired++ }),
		)

		_, _, err := client.Login(context.Background(), "a@b.com", "wrong")
		require.ErrorIs(t, err, backend.ErrUnauthorized)
		require.Zero(t, fired)
	})
}
