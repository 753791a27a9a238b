package gateway

import (
	"crypto/subtle"
	"os"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
)

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ResolveToken resolves the gateway token from settings and environment.
// Precedence: settings value, then GITCHAT_GATEWAY_TOKEN. An empty token
// disables authentication, which is only sensible on loopback binds.
func ResolveToken(gw config.GatewaySettings) string {
	if gw.Token != "" {
		return gw.Token
	}
	return os.Getenv("GITCHAT_GATEWAY_TOKEN")
}

// Authorize checks the provided ConnectAuth against the server token.
func Authorize(serverToken string, clientAuth *ConnectAuth) AuthResult {
	if serverToken == "" {
		return AuthResult{OK: true}
	}
	if clientAuth == nil || clientAuth.Token == "" {
		return AuthResult{OK: false, Reason: "token required"}
	}
	if !safeEqual(clientAuth.Token, serverToken) {
		return AuthResult{OK: false, Reason: "token_mismatch"}
	}
	return AuthResult{OK: true}
}

// safeEqual performs a constant-time string comparison to prevent timing attacks.
// Length is compared in constant time as well so that secret length is not leaked.
func safeEqual(a, b string) bool {
	lenMatch := subtle.ConstantTimeEq(int32(len(a)), int32(len(b)))
	cmp := subtle.ConstantTimeCompare([]byte(a), []byte(b))
	return subtle.ConstantTimeSelect(lenMatch, cmp, 0) == 1
}
