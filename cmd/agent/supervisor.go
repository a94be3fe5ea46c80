package main

import (
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/postsiva/automator-agent/credentials"
	"github.com/postsiva/automator-agent/internal/config"
	"github.com/postsiva/automator-agent/session"
	"github.com/postsiva/automator-agent/sessionstore"
)

// monitorSupervisor ties the monitor's lifetime to the presence of an auth
// token. A monitor runs only while a session exists, and a user initiated
// logout stops the monitor first so it never fires on its own teardown.
type monitorSupervisor struct {
	store   sessionstore.Store
	manager *session.Manager
	gate    *credentials.Gate
	config  config.Config

	mu          sync.Mutex
	monitor     *session.Monitor
	unsubscribe func()
}

func newMonitorSupervisor(store sessionstore.Store, manager *session.Manager, gate *credentials.Gate, c config.Config) *monitorSupervisor {
	return &monitorSupervisor{
		store:   store,
		manager: manager,
		gate:    gate,
		config:  c,
	}
}

func (s *monitorSupervisor) start() {
	s.unsubscribe = s.store.Subscribe(func(key sessionstore.Key) {
		if key != sessionstore.KeyAuthToken {
			return
		}
		token, err := s.store.Get(sessionstore.KeyAuthToken)
		if err != nil {
			return
		}
		if token != "" {
			s.startMonitor()
		} else {
			s.stopMonitor()
		}
	})
	if token, _ := s.store.Get(sessionstore.KeyAuthToken); token != "" {
		s.startMonitor()
	}
}

func (s *monitorSupervisor) stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.stopMonitor()
}

// forceLogout tears the session down in response to a rejected request.
func (s *monitorSupervisor) forceLogout() {
	zlog.Warn().Msg("backend rejected credentials, logging out")
	s.logout()
}

func (s *monitorSupervisor) logout() {
	s.stopMonitor()
	s.gate.Reset()
	s.manager.Logout()
}

func (s *monitorSupervisor) startMonitor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor != nil {
		return
	}
	s.monitor = session.NewMonitor(s.store, s.logout,
		session.WithMonitorInterval(s.config.GetMonitorInterval()),
		session.WithLogoutDelay(s.config.GetLogoutDelay()),
	)
	s.monitor.Start()
	zlog.Debug().Msg("session monitor started")
}

func (s *monitorSupervisor) stopMonitor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.monitor == nil {
		return
	}
	s.monitor.Stop()
	s.monitor = nil
	zlog.Debug().Msg("session monitor stopped")
}
