package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/postsiva/automator-agent/session"
	"github.com/postsiva/automator-agent/sessionstore"
)

// StatusResponse is the agent's view of the current session and credential
// state, consumed by the dashboard shell.
type StatusResponse struct {
	Authenticated    bool       `json:"authenticated"`
	Reason           string     `json:"reason,omitempty"`
	UserID           string     `json:"user_id,omitempty"`
	Email            string     `json:"email,omitempty"`
	TokenExpiry      *time.Time `json:"token_expiry,omitempty"`
	CredentialStatus string     `json:"credential_status"`
	AllowAccess      bool       `json:"allow_access"`
	NeedsCredentials bool       `json:"needs_youtube_credentials"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := session.ReadSnapshot(s.store)
		if err != nil {
			http.Error(w, "failed reading session store", http.StatusInternalServerError)
			return
		}
		verdict := session.Validate(snap)

		resp := StatusResponse{
			Authenticated:    verdict.Valid,
			Reason:           verdict.Reason,
			CredentialStatus: string(s.gate.Status()),
			AllowAccess:      s.gate.AllowAccess(),
		}
		if verdict.Valid {
			resp.UserID = snap.User.ID
			resp.Email = snap.User.Email
			if _, expiry, ok := session.TokenClaims(snap.AuthToken); ok && !expiry.IsZero() {
				resp.TokenExpiry = &expiry
			}
		}
		if flag, err := s.store.Get(sessionstore.KeyNeedsYouTubeCredentials); err == nil {
			resp.NeedsCredentials = flag == "1"
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
