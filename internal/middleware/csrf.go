package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/sekolahku/portal-gateway/internal/session"
)

// Double-submit-cookie names: the token must appear both in the cookie and
// in the request header, which a cross-site request cannot replicate.
const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// secureCompare performs a constant-time comparison of two strings
// to prevent timing attacks
func secureCompare(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// isStateChanging reports whether the method requires CSRF validation.
// Safe methods (GET/HEAD/OPTIONS) bypass the check entirely.
func isStateChanging(method string) bool {
	switch method {
	case "POST", "PUT", "DELETE", "PATCH":
		return true
	}
	return false
}

// ValidateCSRF runs the double-submit check: the cookie-stored token and the
// header-supplied token must both be present and equal. A pure boolean gate;
// failures are never retried, the client must re-fetch a token.
func ValidateCSRF(cookieHeader, headerToken string) bool {
	if cookieHeader == "" || headerToken == "" {
		return false
	}

	cookieToken := session.ParseCookies(cookieHeader)[CSRFCookieName]
	if cookieToken == "" {
		return false
	}

	return secureCompare(cookieToken, headerToken)
}

// GenerateCSRFToken mints a random 32-byte hex-encoded token. Issued at
// session start; the gateway itself only validates.
func GenerateCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
