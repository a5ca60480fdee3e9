package session

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func mintToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()

	token, err := NewHMACVerifier(testSecret).Sign(subject, ttl)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return token
}

func newTestValidator() *Validator {
	return NewValidator(NewHMACVerifier(testSecret))
}

func TestValidate_MissingCookieHeader(t *testing.T) {
	identity, reason := newTestValidator().Validate("")
	if identity.Authenticated {
		t.Fatalf("Authenticated = true, want false")
	}
	if reason != "missing session cookie" {
		t.Fatalf("reason = %q, want %q", reason, "missing session cookie")
	}
}

func TestValidate_NoSessionCookie(t *testing.T) {
	identity, _ := newTestValidator().Validate("theme=dark; lang=id")
	if identity.Authenticated {
		t.Fatalf("Authenticated = true, want false")
	}
}

func TestValidate_MalformedToken(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"two segments", "aaaa.bbbb"},
		{"four segments", "a.b.c.d"},
		{"empty middle segment", "aaaa..cccc"},
		{"empty signature", "aaaa.bbbb."},
		{"no dots", "plainvalue"},
	}

	v := newTestValidator()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identity, reason := v.Validate(CookieNameFallback + "=" + tc.token)
			if identity.Authenticated {
				t.Fatalf("Authenticated = true, want false")
			}
			if reason != "malformed session token" {
				t.Fatalf("reason = %q, want %q", reason, "malformed session token")
			}
		})
	}
}

func TestValidate_ReasonNeverContainsToken(t *testing.T) {
	token := "secretpart.secretpart.secretpart"
	_, reason := newTestValidator().Validate(CookieNameFallback + "=" + token)
	if reason == "" {
		t.Fatalf("reason empty, want failure reason")
	}
	if strings.Contains(reason, "secretpart") {
		t.Fatalf("reason %q leaks token material", reason)
	}
}

func TestValidate_ValidToken(t *testing.T) {
	token := mintToken(t, "guru-17", time.Hour)

	identity, reason := newTestValidator().Validate(CookieNameFallback + "=" + token)
	if !identity.Authenticated {
		t.Fatalf("Authenticated = false (reason %q), want true", reason)
	}
	if identity.SubjectID != "guru-17" {
		t.Fatalf("SubjectID = %q, want %q", identity.SubjectID, "guru-17")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	token := mintToken(t, "guru-17", -time.Minute)

	identity, reason := newTestValidator().Validate(CookieNameFallback + "=" + token)
	if identity.Authenticated {
		t.Fatalf("Authenticated = true for expired token, want false")
	}
	if reason != "invalid or expired session" {
		t.Fatalf("reason = %q, want %q", reason, "invalid or expired session")
	}
}

func TestValidate_WrongSecretRejected(t *testing.T) {
	token, err := NewHMACVerifier("another-secret-another-secret-32ch").Sign("guru-17", time.Hour)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	identity, _ := newTestValidator().Validate(CookieNameFallback + "=" + token)
	if identity.Authenticated {
		t.Fatalf("Authenticated = true for foreign signature, want false")
	}
}

func TestValidate_HostPrefixedCookiePreferred(t *testing.T) {
	good := mintToken(t, "siswa-9", time.Hour)

	header := CookieNameHost + "=" + good + "; " + CookieNameFallback + "=not.a-valid.token"
	identity, _ := newTestValidator().Validate(header)
	if !identity.Authenticated || identity.SubjectID != "siswa-9" {
		t.Fatalf("identity = %+v, want authenticated siswa-9 via __Host cookie", identity)
	}
}

func TestParseCookies(t *testing.T) {
	cookies := ParseCookies("a=1; b=two ;c= three;empty;d=x=y")
	if cookies["a"] != "1" || cookies["b"] != "two" || cookies["c"] != "three" {
		t.Fatalf("ParseCookies basic values wrong: %v", cookies)
	}
	if _, ok := cookies["empty"]; ok {
		t.Fatalf("pair without '=' must be skipped")
	}
	if cookies["d"] != "x=y" {
		t.Fatalf("value containing '=' must be preserved, got %q", cookies["d"])
	}
}
