package session

import (
	"strings"
)

// Session cookie names. The __Host- prefixed cookie is preferred; the bare
// name is the fallback for deployments without the prefix guarantees.
const (
	CookieNameHost     = "__Host-auth_session"
	CookieNameFallback = "auth_session"
)

// Identity is the outcome of validating a request's session
type Identity struct {
	Authenticated bool
	SubjectID     string
}

// Verifier is the cryptographic collaborator that checks token signatures
// and expiry. The validator itself only does structural checks.
type Verifier interface {
	Verify(token string) (subject string, err error)
}

// Validator parses the session cookie and validates the token
type Validator struct {
	verifier Verifier
}

// NewValidator creates a validator backed by the given verifier
func NewValidator(verifier Verifier) *Validator {
	return &Validator{verifier: verifier}
}

// Validate checks the Cookie header for a structurally and cryptographically
// valid session token. A missing or invalid session is not an error: the
// identity comes back unauthenticated with a reason suitable for the event
// log. The token value itself never appears in the reason.
func (v *Validator) Validate(cookieHeader string) (Identity, string) {
	if cookieHeader == "" {
		return Identity{}, "missing session cookie"
	}

	cookies := ParseCookies(cookieHeader)
	token, ok := cookies[CookieNameHost]
	if !ok {
		token, ok = cookies[CookieNameFallback]
	}
	if !ok || token == "" {
		return Identity{}, "missing session cookie"
	}

	// Structural check: header.payload.signature, all segments non-empty.
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Identity{}, "malformed session token"
	}

	subject, err := v.verifier.Verify(token)
	if err != nil {
		return Identity{}, "invalid or expired session"
	}

	return Identity{Authenticated: true, SubjectID: subject}, ""
}

// ParseCookies parses a raw Cookie header into a name-value map
func ParseCookies(header string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		cookies[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return cookies
}
