package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/postsiva/automator-agent/sessionstore"
)

const (
	defaultMonitorInterval = 5 * time.Second
	defaultLogoutDelay     = 1500 * time.Millisecond
)

// Monitor watches the session record while a protected area is active. It
// revalidates on a fixed cadence and reacts immediately to store mutations
// from other contexts. A detected invalidity notifies once and schedules one
// forced logout; the logout only goes through if the record is still invalid
// when the delay elapses, so a login that lands in between (an account switch
// rewriting the record) is never wiped.
//
// A fresh login gets a fresh Monitor. Stop the monitor before a
// user-initiated logout so the record clearing is not reported as a conflict.
type Monitor struct {
	store       sessionstore.Store
	notifier    Notifier
	logout      func()
	interval    time.Duration
	logoutDelay time.Duration

	mu          sync.Mutex
	fired       bool
	logoutTimer *time.Timer

	stopOnce    sync.Once
	stopCh      chan struct{}
	unsubscribe func()
}

// MonitorOption modifies a Monitor instance.
type MonitorOption func(*Monitor)

// WithMonitorInterval sets the revalidation cadence.
func WithMonitorInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.interval = interval
	}
}

// WithLogoutDelay sets the pause between the notification and the forced
// logout, long enough for the notification to render.
func WithLogoutDelay(delay time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.logoutDelay = delay
	}
}

// WithMonitorNotifier sets the notifier used for forced-logout messages.
func WithMonitorNotifier(notifier Notifier) MonitorOption {
	return func(m *Monitor) {
		m.notifier = notifier
	}
}

// NewMonitor creates a Monitor. logout runs the full logout sequence (clear
// record, navigate away) and must be idempotent.
func NewMonitor(store sessionstore.Store, logout func(), options ...MonitorOption) *Monitor {
	monitor := &Monitor{
		store:       store,
		notifier:    LogNotifier{},
		logout:      logout,
		interval:    defaultMonitorInterval,
		logoutDelay: defaultLogoutDelay,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(monitor)
	}
	return monitor
}

// Start begins the validation timer and the store-change listener.
func (m *Monitor) Start() {
	m.unsubscribe = m.store.Subscribe(func(key sessionstore.Key) {
		if !isSessionKey(key) {
			return
		}
		log.Debug().Str("key", string(key)).Msg("session store change detected")
		m.check("Session Conflict Detected", "Another account has logged in. You will be logged out.")
	})
	go m.loop()
	log.Debug().Dur("interval", m.interval).Msg("session monitor started")
}

// Stop cancels the ticker, the store subscription and any pending delayed
// logout. It is safe to call more than once; no callbacks run after Stop
// returns.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.mu.Lock()
		if m.logoutTimer != nil {
			m.logoutTimer.Stop()
		}
		m.mu.Unlock()
		log.Debug().Msg("session monitor stopped")
	})
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.check("Session Expired", "")
		}
	}
}

// check revalidates the store. The first detected invalidity notifies the
// user and schedules the forced logout; later detections within the same
// invalid window are swallowed by the single-fire guard.
func (m *Monitor) check(title, description string) {
	if m.stopped() {
		return
	}

	verdict := ValidateStore(m.store)
	if verdict.Valid {
		return
	}

	m.mu.Lock()
	if m.fired {
		m.mu.Unlock()
		return
	}
	m.fired = true
	m.mu.Unlock()

	if description == "" {
		description = verdict.Reason
	}
	log.Warn().Str("reason", verdict.Reason).Msg("session validation failed, forcing logout")
	m.notifier.Notify(Notification{
		Title:       title,
		Description: description,
		Severity:    SeverityDestructive,
	})

	timer := time.AfterFunc(m.logoutDelay, m.fire)
	m.mu.Lock()
	m.logoutTimer = timer
	m.mu.Unlock()
	if m.stopped() {
		timer.Stop()
	}
}

// fire runs the scheduled forced logout. The invalid window may have closed
// while the notification was showing, a fresh login having rewritten the
// whole record; that record stays, and the guard rearms for it.
func (m *Monitor) fire() {
	if m.stopped() {
		return
	}
	if ValidateStore(m.store).Valid {
		log.Debug().Msg("session record replaced before the delayed logout, keeping it")
		m.mu.Lock()
		m.fired = false
		m.mu.Unlock()
		return
	}
	m.logout()
}

func (m *Monitor) stopped() bool {
	select {
	case <-m.stopCh:
		return true
	default:
		return false
	}
}

func isSessionKey(key sessionstore.Key) bool {
	for _, sessionKey := range sessionstore.SessionKeys() {
		if key == sessionKey {
			return true
		}
	}
	return false
}
