// Package server exposes the agent's local HTTP surface: the status endpoint
// consumed by the dashboard shell and the landing spot for the backend's
// Google OAuth redirect.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/postsiva/automator-agent/backend"
	"github.com/postsiva/automator-agent/credentials"
	"github.com/postsiva/automator-agent/internal/config"
	"github.com/postsiva/automator-agent/session"
	"github.com/postsiva/automator-agent/sessionstore"
)

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	store   sessionstore.Store
	manager *session.Manager
	gate    *credentials.Gate
	api     *backend.Client
}

func New(config config.Config, store sessionstore.Store, manager *session.Manager, gate *credentials.Gate, api *backend.Client) (*Server, error) {
	if store == nil || manager == nil || gate == nil || api == nil {
		return nil, fmt.Errorf("[Server New] store, manager, gate and api are required")
	}
	s := &Server{
		mux:     http.NewServeMux(),
		config:  config,
		store:   store,
		manager: manager,
		gate:    gate,
		api:     api,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteFunc("GET "+RouteStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteGoogleCallback, ChainMiddleware(s.GoogleCallbackHandler(), s.APIMiddleware()...))
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
