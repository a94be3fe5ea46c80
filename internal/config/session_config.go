package config

import "time"

type SessionConfig interface {
	GetMonitorInterval() time.Duration
	GetLogoutDelay() time.Duration
	GetRequestTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetMonitorInterval() time.Duration {
	return 5 * time.Second
}

// GetLogoutDelay is the pause between the forced-logout notification and the
// logout itself, enough for the notification to render.
func (Session) GetLogoutDelay() time.Duration {
	return 1500 * time.Millisecond
}

func (Session) GetRequestTimeout() time.Duration {
	return 30 * time.Second
}
