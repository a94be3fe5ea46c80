// Package credentials guards protected views behind a valid YouTube OAuth
// credential and drives the handshake when none is on file. The handshake is
// proxied by the backend: the gate only opens the provider URL out of band
// and polls the backend until the authorization lands.
package credentials

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/postsiva/automator-agent/backend"
	"github.com/postsiva/automator-agent/sessionstore"
)

// Status is the gate's view of the YouTube credential.
type Status string

const (
	StatusUnknown     Status = "unknown"     // not yet checked
	StatusChecking    Status = "checking"    // status request in flight
	StatusAbsent      Status = "absent"      // no token on file
	StatusAuthorizing Status = "authorizing" // handshake opened, awaiting completion
	StatusValid       Status = "valid"       // access token present and usable
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 30
)

// ErrAuthorizationTimeout is returned when the external authorization never
// lands within the polling budget. Not a dialog-worthy failure: the gate is
// left retryable.
var ErrAuthorizationTimeout = errors.New("stopped waiting for authorization")

// CredentialAPI is the slice of the backend the gate consumes.
type CredentialAPI interface {
	CreateYouTubeToken(ctx context.Context) (authURL string, message string, err error)
	GetYouTubeToken(ctx context.Context) (*backend.TokenStatus, error)
}

// OpenAuthURL opens the provider-hosted authorization URL out of band
// (popup, browser tab). A failure here is the popup-blocked case: surfaced
// immediately, never retried automatically.
type OpenAuthURL func(url string) error

// Gate decides whether a protected view may render. Access is allowed only
// once a check resolves to StatusValid, unless the bypass is configured.
type Gate struct {
	api          CredentialAPI
	store        sessionstore.Store
	openURL      OpenAuthURL
	pollInterval time.Duration
	pollAttempts int
	bypass       bool

	mu     sync.Mutex
	status Status
	token  *oauth2.Token
}

// GateOption modifies a Gate instance.
type GateOption func(*Gate)

// WithOpenAuthURL sets the out-of-band URL opener. Required for Connect.
func WithOpenAuthURL(open OpenAuthURL) GateOption {
	return func(g *Gate) {
		g.openURL = open
	}
}

// WithPollInterval sets the handshake polling cadence.
func WithPollInterval(interval time.Duration) GateOption {
	return func(g *Gate) {
		g.pollInterval = interval
	}
}

// WithPollAttempts bounds the number of handshake polls.
func WithPollAttempts(attempts int) GateOption {
	return func(g *Gate) {
		g.pollAttempts = attempts
	}
}

// WithBypass lets the protected view render without a resolved check.
func WithBypass(bypass bool) GateOption {
	return func(g *Gate) {
		g.bypass = bypass
	}
}

// NewGate creates a credential gate. The store receives the best-effort
// needs-credentials hint; it is never authoritative over a live check.
func NewGate(api CredentialAPI, store sessionstore.Store, options ...GateOption) (*Gate, error) {
	if api == nil {
		return nil, errors.New("[NewGate] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewGate] store is required")
	}
	gate := &Gate{
		api:          api,
		store:        store,
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
		status:       StatusUnknown,
	}
	for _, opt := range options {
		opt(gate)
	}
	return gate, nil
}

// Status returns the current credential status.
func (g *Gate) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Token returns the resolved YouTube token, or nil before StatusValid.
func (g *Gate) Token() *oauth2.Token {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token
}

// AllowAccess reports whether the protected view may render.
func (g *Gate) AllowAccess() bool {
	if g.bypass {
		return true
	}
	return g.Status() == StatusValid
}

// Resolved reports whether the initial check has completed. Protected views
// must not render children before this is true (or the bypass is set).
func (g *Gate) Resolved() bool {
	if g.bypass {
		return true
	}
	status := g.Status()
	return status != StatusUnknown && status != StatusChecking
}

// Reset forces the gate back to StatusUnknown, e.g. after a full session
// invalidation.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.status = StatusUnknown
	g.token = nil
	g.mu.Unlock()
}

// Check fetches the credential status once. A missing token is a normal
// negative result (false, nil error); the returned error is non-nil only for
// transport or auth failures, in which case the gate still reads as absent so
// manual retry stays available.
func (g *Gate) Check(ctx context.Context) (bool, error) {
	g.setStatus(StatusChecking)

	tokenStatus, err := g.api.GetYouTubeToken(ctx)
	if err != nil {
		g.setAbsent()
		return false, errors.Wrap(err, "[Gate.Check] GetYouTubeToken")
	}
	if !tokenStatus.HasAccessToken() {
		g.setAbsent()
		return false, nil
	}
	g.setValid(tokenStatus.Token())
	return true, nil
}

// Connect ensures a valid credential, driving the handshake if needed: it
// requests an authorization URL, opens it externally, then polls until the
// authorization lands or the attempt budget is spent.
func (g *Gate) Connect(ctx context.Context) error {
	ok, err := g.Check(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("credential pre-check failed, starting handshake")
	}
	if ok {
		return nil
	}

	if g.openURL == nil {
		return errors.New("[Gate.Connect] no auth URL opener configured")
	}

	authURL, message, err := g.api.CreateYouTubeToken(ctx)
	if err != nil {
		g.setAbsent()
		return errors.Wrap(err, "[Gate.Connect] CreateYouTubeToken")
	}
	log.Info().Str("message", message).Msg("opening YouTube authorization URL")

	if err := g.openURL(authURL); err != nil {
		g.setAbsent()
		return errors.Wrap(err, "[Gate.Connect] open authorization URL")
	}

	g.setStatus(StatusAuthorizing)
	return g.poll(ctx)
}

// poll watches the token status while the user completes the authorization
// externally. Poll errors are not fatal; only exhausting the attempt budget
// ends the wait.
func (g *Gate) poll(ctx context.Context) error {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= g.pollAttempts; attempt++ {
		tokenStatus, err := g.api.GetYouTubeToken(ctx)
		if err != nil {
			log.Debug().Int("attempt", attempt).Err(err).Msg("credential poll failed")
		} else if tokenStatus.HasAccessToken() {
			log.Info().Int("attempt", attempt).Msg("YouTube authorization landed")
			g.setValid(tokenStatus.Token())
			return nil
		}

		if attempt == g.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			g.setAbsent()
			return errors.Wrap(ctx.Err(), "[Gate.poll] cancelled")
		case <-ticker.C:
		}
	}

	g.setAbsent()
	return errors.Wrapf(ErrAuthorizationTimeout, "[Gate.poll] after %d attempts", g.pollAttempts)
}

func (g *Gate) setStatus(status Status) {
	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
}

func (g *Gate) setAbsent() {
	g.mu.Lock()
	g.status = StatusAbsent
	g.token = nil
	g.mu.Unlock()
	g.writeNeedsFlag("1")
}

func (g *Gate) setValid(token *oauth2.Token) {
	g.mu.Lock()
	g.status = StatusValid
	g.token = token
	g.mu.Unlock()
	g.writeNeedsFlag("0")
}

// writeNeedsFlag caches the hint other parts of the app use to skip redundant
// checks. Best-effort only.
func (g *Gate) writeNeedsFlag(value string) {
	if err := g.store.Set(sessionstore.KeyNeedsYouTubeCredentials, value); err != nil {
		log.Debug().Err(err).Msg("writing needs-credentials flag failed (ignored)")
	}
}
