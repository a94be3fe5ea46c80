package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/postsiva/automator-agent/session"
)

// GoogleCallbackHandler lands the backend's Google OAuth redirect. The code in
// the query string is exchanged with the backend for a ready-made bearer
// token, which then bootstraps the session through the normal conflict flow.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		errorParam := r.FormValue("error")
		code := r.FormValue("code")
		state := r.FormValue("state")

		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Google OAuth error: %s", errorParam), http.StatusBadRequest)
			return
		}
		if code == "" {
			http.Error(w, "No authorization code received from Google", http.StatusBadRequest)
			return
		}

		token, user, err := s.api.GoogleCallback(r.Context(), code, state)
		if err != nil {
			log.Error().Err(err).Msg("google callback exchange failed")
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
			return
		}

		if err := s.manager.BootstrapFromToken(token, user); err != nil {
			if errors.Is(err, session.LoginCancelledErr) {
				http.Error(w, "Login cancelled", http.StatusConflict)
				return
			}
			log.Error().Err(err).Msg("session bootstrap from google callback failed")
			http.Error(w, "Authentication failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<html><body>Successfully authenticated as %s. You can close this window.</body></html>", user.Email)
	}
}
