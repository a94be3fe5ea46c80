package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims peeks at a bearer token's subject and expiry without verifying
// the signature. The backend is the only verifier of record; this is used for
// logging and the local status surface, never for validation decisions.
func TokenClaims(raw string) (subject string, expiry time.Time, ok bool) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", time.Time{}, false
	}
	subject, _ = token.Claims.GetSubject()
	expiresAt, err := token.Claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return subject, time.Time{}, true
	}
	return subject, expiresAt.Time, true
}
