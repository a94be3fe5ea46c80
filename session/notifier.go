package session

import "github.com/rs/zerolog/log"

// Severity controls how a notification is rendered.
type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityDestructive Severity = "destructive"
)

// Notification is a user-visible message rendered by the UI layer.
type Notification struct {
	Title       string
	Description string
	Severity    Severity
}

// Notifier renders notifications to the user. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Navigate sends the UI to a named route, e.g. the login entry point.
type Navigate func(route string)

// Routes the session layer navigates to.
const (
	RouteLogin          = "/auth/login"
	RouteDashboard      = "/dashboard"
	RouteYouTubeConnect = "/auth/youtube-connect"
)

// LogNotifier renders notifications onto the structured log. It is the
// default when no UI notifier is wired.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) Notify(n Notification) {
	evt := log.Info()
	if n.Severity == SeverityDestructive {
		evt = log.Warn()
	}
	evt.Str("title", n.Title).Msg(n.Description)
}
