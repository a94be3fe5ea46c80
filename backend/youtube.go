package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// TokenStatus is the backend's report on the stored YouTube OAuth token.
// A missing token is a normal negative result (Success false), not an error.
type TokenStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresAt    string `json:"expires_at"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
	} `json:"data"`
}

// HasAccessToken reports whether a usable access token is on file.
func (ts *TokenStatus) HasAccessToken() bool {
	return ts != nil && ts.Success && ts.Data.AccessToken != ""
}

// Token converts the status into an oauth2 token, or nil when absent.
func (ts *TokenStatus) Token() *oauth2.Token {
	if !ts.HasAccessToken() {
		return nil
	}
	token := &oauth2.Token{
		AccessToken:  ts.Data.AccessToken,
		RefreshToken: ts.Data.RefreshToken,
		TokenType:    ts.Data.TokenType,
	}
	if expiry, err := time.Parse(time.RFC3339, ts.Data.ExpiresAt); err == nil {
		token.Expiry = expiry
	}
	return token
}

type createTokenResponse struct {
	Message string `json:"message"`
	Data    struct {
		AuthURL      string `json:"auth_url"`
		Instructions string `json:"instructions"`
		Message      string `json:"message"`
	} `json:"data"`
}

// CreateYouTubeToken asks the backend to start the YouTube OAuth handshake
// and returns the provider authorization URL to open externally.
func (c *Client) CreateYouTubeToken(ctx context.Context) (authURL string, message string, err error) {
	var resp createTokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/youtube/create-token", nil, &resp); err != nil {
		return "", "", errors.Wrap(err, "[Client.CreateYouTubeToken] doJSON")
	}
	message = resp.Message
	if message == "" {
		message = resp.Data.Message
	}
	if resp.Data.AuthURL == "" {
		return "", message, errors.Wrap(MissingAuthURLErr, "[Client.CreateYouTubeToken]")
	}
	return resp.Data.AuthURL, message, nil
}

// GetYouTubeToken fetches the stored YouTube token status. Absence of a token
// comes back as a non-nil status with Success false; only transport and auth
// failures are errors.
func (c *Client) GetYouTubeToken(ctx context.Context) (*TokenStatus, error) {
	var status TokenStatus
	if err := c.doJSON(ctx, http.MethodGet, "/youtube/get-token", nil, &status); err != nil {
		return nil, errors.Wrap(err, "[Client.GetYouTubeToken] doJSON")
	}
	return &status, nil
}
