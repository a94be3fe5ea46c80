package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/postsiva/automator-agent/sessionstore"
)

const aiKeyProbeTimeout = 10 * time.Second

// SignupRequest carries the fields the backend signup endpoint expects.
type SignupRequest struct {
	Email    string
	Username string
	FullName string
	Password string
}

// AuthAPI is the slice of the backend the session layer consumes.
type AuthAPI interface {
	// Login exchanges credentials for a bearer token and the user profile.
	Login(ctx context.Context, email, password string) (token string, user User, err error)

	// Signup registers a new account and returns the created profile.
	Signup(ctx context.Context, signup SignupRequest) (User, error)

	// HasAIKey reports whether the backend holds an AI API key for the
	// authenticated user.
	HasAIKey(ctx context.Context) (bool, error)
}

// ConflictPrompt asks the user to confirm destroying the current session
// before logging in as a different account. Returning false aborts the login.
type ConflictPrompt func(currentEmail, newEmail string) bool

// Deps holds the dependencies for the session Manager.
type Deps struct {
	Store    sessionstore.Store
	API      AuthAPI
	Notifier Notifier       // defaults to LogNotifier
	Navigate Navigate       // defaults to a no-op
	Prompt   ConflictPrompt // defaults to auto-confirm, matching a headless switch
}

// Manager owns the session record lifecycle: login, signup, logout, the
// startup bootstrap and the account-switch conflict flow.
type Manager struct {
	store    sessionstore.Store
	api      AuthAPI
	notifier Notifier
	navigate Navigate
	prompt   ConflictPrompt
	nowTime  func() time.Time
}

// ManagerOption modifies a Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager initializes a session Manager with required dependencies.
func NewManager(deps Deps, options ...ManagerOption) (*Manager, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewManager] Store is required")
	}
	if deps.API == nil {
		return nil, errors.New("[NewManager] API is required")
	}

	manager := &Manager{
		store:    deps.Store,
		api:      deps.API,
		notifier: deps.Notifier,
		navigate: deps.Navigate,
		prompt:   deps.Prompt,
		nowTime:  time.Now,
	}
	if manager.notifier == nil {
		manager.notifier = LogNotifier{}
	}
	if manager.navigate == nil {
		manager.navigate = func(string) {}
	}
	if manager.prompt == nil {
		manager.prompt = func(string, string) bool { return true }
	}

	for _, opt := range options {
		opt(manager)
	}

	return manager, nil
}

// Login authenticates against the backend and writes a fresh session record.
// If a session for a different account is already active, the conflict prompt
// runs first: cancelling leaves the existing session untouched, confirming
// destroys the whole record before the new login proceeds.
func (m *Manager) Login(ctx context.Context, email, password string) (User, error) {
	if err := m.resolveConflict(email); err != nil {
		return User{}, err
	}

	token, user, err := m.api.Login(ctx, email, password)
	if err != nil {
		return User{}, errors.Wrap(err, "[Manager.Login] api.Login")
	}

	if err := m.writeRecord(token, user); err != nil {
		return User{}, errors.Wrap(err, "[Manager.Login] writeRecord")
	}
	log.Info().Str("email", user.Email).Msg("login successful, new session created")

	// Best-effort probe; non-blocking, errors ignored.
	go m.probeAIKey()

	return user, nil
}

// Signup registers a new account. Nothing beyond the returned profile is
// written to the session record; the caller is expected to log in afterwards.
func (m *Manager) Signup(ctx context.Context, signup SignupRequest) (User, error) {
	user, err := m.api.Signup(ctx, signup)
	if err != nil {
		return User{}, errors.Wrap(err, "[Manager.Signup] api.Signup")
	}
	log.Info().Str("email", user.Email).Str("userID", user.ID).Msg("signup successful")
	return user, nil
}

// BootstrapFromToken completes a login that arrived out of band: the backend's
// OAuth redirect lands carrying a ready-made bearer token and profile. The
// conflict flow applies exactly as for a password login.
func (m *Manager) BootstrapFromToken(token string, user User) error {
	if err := m.resolveConflict(user.Email); err != nil {
		return err
	}
	if err := m.writeRecord(token, user); err != nil {
		return errors.Wrap(err, "[Manager.BootstrapFromToken] writeRecord")
	}
	if subject, expiry, ok := TokenClaims(token); ok {
		log.Debug().Str("subject", subject).Time("expiry", expiry).Msg("bearer token accepted from redirect")
	}
	log.Info().Str("email", user.Email).Msg("session bootstrapped from redirect token")
	return nil
}

// Bootstrap restores the session on startup. An empty store means logged out;
// a partial or conflicting record forces a logout with the validator's reason.
func (m *Manager) Bootstrap() (User, bool) {
	snap, err := ReadSnapshot(m.store)
	if err != nil || snap.Empty() {
		return User{}, false
	}
	verdict := Validate(snap)
	if !verdict.Valid {
		log.Warn().Str("reason", verdict.Reason).Msg("stored session failed validation, forcing logout")
		m.notifier.Notify(Notification{
			Title:       "Session Expired",
			Description: verdict.Reason,
			Severity:    SeverityDestructive,
		})
		m.Logout()
		return User{}, false
	}
	if _, expiry, ok := TokenClaims(snap.AuthToken); ok {
		log.Debug().Time("tokenExpiry", expiry).Msg("restored session from store")
	}
	return *snap.User, true
}

// Logout destroys the whole session record, then navigates to the login entry
// point. The record is fully cleared before navigation so an in-flight request
// holding stale credentials fails closed. Logout is safe to call repeatedly.
func (m *Manager) Logout() {
	if err := m.store.Apply(nil, []sessionstore.Key{
		sessionstore.KeyAuthToken,
		sessionstore.KeyUserData,
		sessionstore.KeySessionID,
		sessionstore.KeyActiveUserID,
		sessionstore.KeyNeedsYouTubeCredentials,
		sessionstore.KeyHasAIKey,
	}); err != nil {
		log.Error().Err(err).Msg("failed clearing session record during logout")
	}
	m.navigate(RouteLogin)
}

// AuthToken returns the current bearer token, or "" when logged out.
func (m *Manager) AuthToken() string {
	token, err := m.store.Get(sessionstore.KeyAuthToken)
	if err != nil {
		return ""
	}
	return token
}

// resolveConflict runs the account-switch check for a login attempt with the
// given email. A confirmed switch clears all record fields together; the
// validator never observes a half-cleared record.
func (m *Manager) resolveConflict(email string) error {
	snap, err := ReadSnapshot(m.store)
	if err != nil {
		return errors.Wrap(err, "[Manager.resolveConflict] ReadSnapshot")
	}
	if snap.AuthToken == "" || snap.User == nil || snap.User.Email == email {
		return nil
	}

	log.Warn().
		Str("currentEmail", snap.User.Email).
		Str("newEmail", email).
		Msg("login attempted while a different account's session is active")

	if !m.prompt(snap.User.Email, email) {
		m.notifier.Notify(Notification{
			Title:       "Login cancelled",
			Description: "Your current session was left untouched.",
			Severity:    SeverityInfo,
		})
		return LoginCancelledErr
	}

	if err := m.store.Apply(nil, []sessionstore.Key{
		sessionstore.KeyAuthToken,
		sessionstore.KeyUserData,
		sessionstore.KeySessionID,
		sessionstore.KeyActiveUserID,
	}); err != nil {
		return errors.Wrap(err, "[Manager.resolveConflict] clear record")
	}
	return nil
}

// writeRecord writes all four session record fields as one update with a
// freshly generated session id.
func (m *Manager) writeRecord(token string, user User) error {
	userJSON, err := MarshalUser(user)
	if err != nil {
		return err
	}
	sessionID := sessionstore.GenerateSessionID()
	return m.store.Apply(map[sessionstore.Key]string{
		sessionstore.KeyAuthToken:    token,
		sessionstore.KeyUserData:     userJSON,
		sessionstore.KeySessionID:    sessionID,
		sessionstore.KeyActiveUserID: user.ID,
	}, nil)
}

func (m *Manager) probeAIKey() {
	ctx, cancel := context.WithTimeout(context.Background(), aiKeyProbeTimeout)
	defer cancel()

	hasKey, err := m.api.HasAIKey(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("AI key probe failed (ignored)")
		return
	}
	value := "false"
	if hasKey {
		value = "true"
	}
	if err := m.store.Set(sessionstore.KeyHasAIKey, value); err != nil {
		log.Debug().Err(err).Msg("caching AI key presence failed (ignored)")
	}
}
