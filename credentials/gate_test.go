package credentials_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/postsiva/automator-agent/backend"
	"github.com/postsiva/automator-agent/credentials"
	"github.com/postsiva/automator-agent/sessionstore"
	"github.com/postsiva/automator-agent/sessionstore/storefakes"
)

const testAuthURL = "https://accounts.google.com/o/oauth2/auth?client_id=test"

func absentStatus() *backend.TokenStatus {
	return &backend.TokenStatus{Success: false, Message: "No token found"}
}

func validStatus() *backend.TokenStatus {
	status := &backend.TokenStatus{Success: true}
	status.Data.AccessToken = "ya29.test-access-token"
	status.Data.RefreshToken = "refresh-token"
	status.Data.TokenType = "Bearer"
	status.Data.ExpiresAt = time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	return status
}

// fakeCredentialAPI replays a scripted sequence of token statuses: one entry
// per GetYouTubeToken call, the last entry repeating forever.
type fakeCredentialAPI struct {
	statuses  []*backend.TokenStatus
	statusErr error
	createErr error

	lock        sync.Mutex
	getCalls    int
	createCalls int
}

func (f *fakeCredentialAPI) CreateYouTubeToken(context.Context) (string, string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", "", f.createErr
	}
	return testAuthURL, "Visit the URL to authorize", nil
}

func (f *fakeCredentialAPI) GetYouTubeToken(context.Context) (*backend.TokenStatus, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.getCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	index := f.getCalls - 1
	if index >= len(f.statuses) {
		index = len(f.statuses) - 1
	}
	return f.statuses[index], nil
}

func (f *fakeCredentialAPI) gets() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.getCalls
}

type gateFixture struct {
	api        *fakeCredentialAPI
	store      *storefakes.FakeStore
	openedURLs []string
	gate       *credentials.Gate
}

func setupGate(t *testing.T, api *fakeCredentialAPI, options ...credentials.GateOption) *gateFixture {
	t.Helper()

	f := &gateFixture{api: api, store: storefakes.NewFakeStore()}
	options = append([]credentials.GateOption{
		credentials.WithOpenAuthURL(func(url string) error {
			f.openedURLs = append(f.openedURLs, url)
			return nil
		}),
		credentials.WithPollInterval(time.Millisecond),
		credentials.WithPollAttempts(5),
	}, options...)

	gate, err := credentials.NewGate(api, f.store, options...)
	require.NoError(t, err)
	f.gate = gate
	return f
}

func TestNewGate(t *testing.T) {
	t.Run("requires an API", func(t *testing.T) {
		_, err := credentials.NewGate(nil, storefakes.NewFakeStore())
		require.Error(t, err)
	})

	t.Run("requires a store", func(t *testing.T) {
		_, err := credentials.NewGate(&fakeCredentialAPI{}, nil)
		require.Error(t, err)
	})
}

func TestGateCheck(t *testing.T) {
	t.Run("token on file resolves to valid", func(t *testing.T) {
		f := setupGate(t, &fakeCredentialAPI{statuses: []*backend.TokenStatus{validStatus()}})

		ok, err := f.gate.Check(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, credentials.StatusValid, f.gate.Status())
		require.True(t, f.gate.AllowAccess())
		require.True(t, f.gate.Resolved())

		token := f.gate.Token()
		require.NotNil(t, token)
		require.Equal(t, "ya29.test-access-token", token.AccessToken)

		flag, _ := f.store.Get(sessionstore.KeyNeedsYouTubeCredentials)
		require.Equal(t, "0", flag)
	})

	t.Run("no token is a clean negative", func(t *testing.T) {
		f := setupGate(t, &fakeCredentialAPI{statuses: []*backend.TokenStatus{absentStatus()}})

		ok, err := f.gate.Check(context.Background())
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, credentials.StatusAbsent, f.gate.Status())
		require.False(t, f.gate.AllowAccess())
		require.True(t, f.gate.Resolved())

		flag, _ := f.store.Get(sessionstore.KeyNeedsYouTubeCredentials)
		require.Equal(t, "1", flag)
	})

	t.Run("transport failure reads as absent but surfaces the error", func(t *testing.T) {
		f := setupGate(t, &fakeCredentialAPI{statusErr: errors.New("connection refused")})

		ok, err := f.gate.Check(context.Background())
		require.Error(t, err)
		require.False(t, ok)
		require.Equal(t, credentials.StatusAbsent, f.gate.Status())
	})
}

func TestGateConnect(t *testing.T) {
	t.Run("existing token skips the handshake", func(t *testing.T) {
		f := setupGate(t, &fakeCredentialAPI{statuses: []*backend.TokenStatus{validStatus()}})

		require.NoError(t, f.gate.Connect(context.Background()))
		require.Empty(t, f.openedURLs)
		require.Zero(t, f.api.createCalls)
	})

	t.Run("handshake opens the URL and polls until the token lands", func(t *testing.T) {
		// Pre-check absent, then two empty polls, then the token arrives.
		api := &fakeCredentialAPI{statuses: []*backend.TokenStatus{
			absentStatus(), absentStatus(), absentStatus(), validStatus(),
		}}
		f := setupGate(t, api)

		require.NoError(t, f.gate.Connect(context.Background()))
		require.Equal(t, []string{testAuthURL}, f.openedURLs)
		require.Equal(t, credentials.StatusValid, f.gate.Status())
		require.NotNil(t, f.gate.Token())
	})

	t.Run("polling stops after the attempt budget", func(t *testing.T) {
		api := &fakeCredentialAPI{statuses: []*backend.TokenStatus{absentStatus()}}
		f := setupGate(t, api)

		err := f.gate.Connect(context.Background())
		require.ErrorIs(t, err, credentials.ErrAuthorizationTimeout)
		// One pre-check plus exactly five polls.
		require.Equal(t, 6, f.api.gets())

		// The gate stays retryable rather than stuck authorizing.
		require.Equal(t, credentials.StatusAbsent, f.gate.Status())
		require.True(t, f.gate.Resolved())
	})

	t.Run("popup blocked is surfaced immediately", func(t *testing.T) {
		api := &fakeCredentialAPI{statuses: []*backend.TokenStatus{absentStatus()}}
		opened := errors.New("popup blocked")
		f := setupGate(t, api, credentials.WithOpenAuthURL(func(string) error { return opened }))

		err := f.gate.Connect(context.Background())
		require.ErrorIs(t, err, opened)
		require.Equal(t, credentials.StatusAbsent, f.gate.Status())
	})

	t.Run("cancellation during polling stops the wait", func(t *testing.T) {
		api := &fakeCredentialAPI{statuses: []*backend.TokenStatus{absentStatus()}}
		f := setupGate(t, api, credentials.WithPollInterval(50*time.Millisecond), credentials.WithPollAttempts(100))

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := f.gate.Connect(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, credentials.StatusAbsent, f.gate.Status())
	})
}

func TestGateBypass(t *testing.T) {
	f := setupGate(t, &fakeCredentialAPI{statuses: []*backend.TokenStatus{absentStatus()}},
		credentials.WithBypass(true))

	// Bypass allows access without any check having run.
	require.Equal(t, credentials.StatusUnknown, f.gate.Status())
	require.True(t, f.gate.AllowAccess())
	require.True(t, f.gate.Resolved())
}

func TestGateReset(t *testing.T) {
	f := setupGate(t, &fakeCredentialAPI{statuses: []*backend.TokenStatus{validStatus()}})

	_, err := f.gate.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, credentials.StatusValid, f.gate.Status())

	f.gate.Reset()
	require.Equal(t, credentials.StatusUnknown, f.gate.Status())
	require.Nil(t, f.gate.Token())
	require.False(t, f.gate.Resolved())
}
