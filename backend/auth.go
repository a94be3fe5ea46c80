package backend

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/postsiva/automator-agent/session"
)

var _ session.AuthAPI = (*Client)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        session.User `json:"user"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	Password  string `json:"password"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// GoogleAuthStatus reports whether the backend's Google OAuth is configured
// and where to send the user to start it.
type GoogleAuthStatus struct {
	Configured  bool   `json:"google_oauth_configured"`
	RedirectURI string `json:"redirect_uri"`
	LoginURL    string `json:"login_url"`
}

type aiKeyResponse struct {
	APIKeyPreview string `json:"api_key_preview"`
	IsActive      bool   `json:"is_active"`
}

// Login exchanges credentials for a bearer token and the user profile.
func (c *Client) Login(ctx context.Context, email, password string) (string, session.User, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return "", session.User{}, errors.Wrap(err, "[Client.Login] doJSON")
	}
	return resp.AccessToken, resp.User, nil
}

// Signup registers a new account and returns the created profile.
func (c *Client) Signup(ctx context.Context, signup session.SignupRequest) (session.User, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	req := signupRequest{
		Email:     signup.Email,
		Username:  signup.Username,
		FullName:  signup.FullName,
		Password:  signup.Password,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var user session.User
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", req, &user); err != nil {
		return session.User{}, errors.Wrap(err, "[Client.Signup] doJSON")
	}
	return user, nil
}

// HasAIKey reports whether the backend holds an AI API key for the
// authenticated user. A null payload means no key.
func (c *Client) HasAIKey(ctx context.Context) (bool, error) {
	var resp *aiKeyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/gemini-keys/", nil, &resp); err != nil {
		return false, errors.Wrap(err, "[Client.HasAIKey] doJSON")
	}
	if resp == nil {
		return false, nil
	}
	return resp.APIKeyPreview != "" || resp.IsActive, nil
}

type googleCallbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

// GoogleCallback exchanges the authorization code the Google redirect carried
// for a ready-made bearer token and profile.
func (c *Client) GoogleCallback(ctx context.Context, code, state string) (string, session.User, error) {
	query := url.Values{"code": []string{code}}
	if state != "" {
		query.Set("state", state)
	}
	var resp googleCallbackResponse
	err := c.doJSON(ctx, http.MethodGet, "/auth/google/callback?"+query.Encode(), nil, &resp)
	if err != nil {
		return "", session.User{}, errors.Wrap(err, "[Client.GoogleCallback] doJSON")
	}
	if !resp.Success || resp.Token == "" {
		message := resp.Message
		if message == "" {
			message = "authentication failed"
		}
		return "", session.User{}, errors.Errorf("[Client.GoogleCallback] %s", message)
	}
	user := session.User{
		ID:       resp.User.ID,
		Email:    resp.User.Email,
		FullName: resp.User.Name,
	}
	return resp.Token, user, nil
}

// GoogleStatus probes the backend's Google OAuth configuration.
func (c *Client) GoogleStatus(ctx context.Context) (GoogleAuthStatus, error) {
	var status GoogleAuthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/auth/google/status", nil, &status); err != nil {
		return GoogleAuthStatus{}, errors.Wrap(err, "[Client.GoogleStatus] doJSON")
	}
	return status, nil
}
