package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	backendURLVar = "BACKEND_URL"
	profileDirVar = "PROFILE_DIR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8787")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "YouTube Automator Agent")
}

// GetBackendBaseURL returns the base URL of the dashboard backend API.
func (EnvVars) GetBackendBaseURL() string {
	return GetEnv(backendURLVar, "https://backend.postsiva.com")
}

// GetProfileDir returns the directory holding this profile's session
// database. All agent processes pointed at the same profile share one
// session record.
func (EnvVars) GetProfileDir() string {
	return GetEnv(profileDirVar, "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
