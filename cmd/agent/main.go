package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/postsiva/automator-agent/backend"
	"github.com/postsiva/automator-agent/credentials"
	"github.com/postsiva/automator-agent/internal/config"
	"github.com/postsiva/automator-agent/server"
	"github.com/postsiva/automator-agent/session"
	"github.com/postsiva/automator-agent/sessionstore"
	"github.com/postsiva/automator-agent/sessionstore/boltstore"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running agent: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Agent stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())
	setupLogging(c.GetEnv())

	if err := os.MkdirAll(c.GetProfileDir(), 0o755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	store, err := boltstore.New(filepath.Join(c.GetProfileDir(), "session.db"))
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	// The manager is constructed after the client but the 401 hook must reach
	// it, hence the indirection.
	var supervisor *monitorSupervisor

	api := backend.New(
		backend.Config{BaseURL: c.GetBackendBaseURL(), Timeout: c.GetRequestTimeout()},
		backend.WithTokenSource(func() string {
			token, _ := store.Get(sessionstore.KeyAuthToken)
			return token
		}),
		backend.WithOnUnauthorized(func() {
			if supervisor != nil {
				supervisor.forceLogout()
			}
		}),
	)

	manager, err := session.NewManager(session.Deps{
		Store: store,
		API:   api,
		Navigate: func(route string) {
			zlog.Info().Str("route", route).Msg("navigation requested")
		},
	})
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}

	gate, err := credentials.NewGate(api, store,
		credentials.WithOpenAuthURL(openBrowser),
		credentials.WithPollInterval(c.GetPollInterval()),
		credentials.WithPollAttempts(c.GetPollAttempts()),
		credentials.WithBypass(c.GetGateBypass()),
	)
	if err != nil {
		return fmt.Errorf("creating credential gate: %w", err)
	}

	supervisor = newMonitorSupervisor(store, manager, gate, c)
	supervisor.start()
	defer supervisor.stop()

	if user, ok := manager.Bootstrap(); ok {
		zlog.Info().Str("email", user.Email).Msg("restored session")
		go func() {
			if _, err := gate.Check(context.Background()); err != nil {
				zlog.Debug().Err(err).Msg("initial credential check failed")
			}
		}()
	}

	srv, err := server.New(c, store, manager, gate, api)
	if err != nil {
		return fmt.Errorf("creating local server: %w", err)
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Agent listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func setupLogging(env string) {
	if env == "DEV" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// openBrowser opens the provider authorization URL in the default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
