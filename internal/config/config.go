package config

type Config interface {
	EnvConfig
	SessionConfig
	CredentialConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBackendBaseURL() string
	GetProfileDir() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
	Credential
}

func New() Config {
	return mainConfig{}
}
