package gateway

import (
	"crypto/subtle"
	"os"

	"github.com/soyeahso/attachkit/internal/config"
)

// Auth modes.
const (
	AuthModeToken    = "token"
	AuthModePassword = "password"
)

// AuthResult is the outcome of a connect request's credentials check.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth is the gateway's effective auth configuration.
type ResolvedAuth struct {
	Mode     string
	Token    string
	Password string
}

// ResolveAuth fills secrets missing from cfg from ATTACHKIT_GATEWAY_TOKEN and
// ATTACHKIT_GATEWAY_PASSWORD. Without an explicit mode, a password selects
// password mode and anything else token mode.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	auth := ResolvedAuth{
		Mode:     cfg.Mode,
		Token:    firstNonEmpty(cfg.Token, os.Getenv("ATTACHKIT_GATEWAY_TOKEN")),
		Password: firstNonEmpty(cfg.Password, os.Getenv("ATTACHKIT_GATEWAY_PASSWORD")),
	}
	if auth.Mode == "" {
		auth.Mode = AuthModeToken
		if auth.Password != "" {
			auth.Mode = AuthModePassword
		}
	}
	return auth
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Authorize checks client credentials against the mode the server runs in.
// Only the secret of that mode is compared.
func Authorize(server ResolvedAuth, client *ConnectAuth) AuthResult {
	if client == nil {
		return AuthResult{Reason: "no credentials provided"}
	}
	switch server.Mode {
	case AuthModeToken:
		return checkSecret(AuthModeToken, server.Token, client.Token)
	case AuthModePassword:
		return checkSecret(AuthModePassword, server.Password, client.Password)
	default:
		return AuthResult{Reason: "unknown auth mode: " + server.Mode}
	}
}

func checkSecret(mode, want, got string) AuthResult {
	switch {
	case want == "":
		return AuthResult{Reason: "server " + mode + " not configured"}
	case got == "":
		return AuthResult{Reason: mode + " required"}
	case !safeEqual(got, want):
		return AuthResult{Reason: mode + "_mismatch"}
	}
	return AuthResult{OK: true, Method: mode}
}

// safeEqual compares in constant time. Lengths are compared with
// ConstantTimeEq so a length mismatch costs the same as a content mismatch.
func safeEqual(a, b string) bool {
	sameLen := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	same := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(sameLen, same, 0) == 1
}
