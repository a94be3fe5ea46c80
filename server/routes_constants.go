package server

// Route path constants
// All local routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth         = "/healthz"
	RouteStatus         = "/status"
	RouteGoogleCallback = "/auth/google/callback"
)
