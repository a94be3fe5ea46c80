package config

import "time"

type CredentialConfig interface {
	GetPollInterval() time.Duration
	GetPollAttempts() int
	GetGateBypass() bool
}

type Credential struct{}

var _ CredentialConfig = Credential{}

func (Credential) GetPollInterval() time.Duration {
	return 2 * time.Second
}

// GetPollAttempts bounds the handshake polling so an abandoned authorization
// does not leave background work running.
func (Credential) GetPollAttempts() int {
	return 30
}

// GetGateBypass lets protected surfaces render without a resolved credential
// check. Debug aid only.
func (Credential) GetGateBypass() bool {
	return GetEnv("CREDENTIAL_GATE_BYPASS", "0") == "1"
}
