package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(t *testing.T) (*Limiter, *MemoryStore) {
	t.Helper()

	store := NewMemoryStore()
	t.Cleanup(store.Stop)

	manager := NewManagerWithConfig(GetDefaultConfig())
	return NewLimiter(store, manager), store
}

func TestSelectPolicy_RuleTable(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	cases := []struct {
		path     string
		method   string
		wantMax  int
		wantName string
	}{
		{"/api/auth/login", "POST", 5, "auth"},
		{"/api/auth", "POST", 5, "auth"},
		{"/api/authoring", "POST", 100, "default"},
		{"/api/files/upload", "POST", 10, "upload"},
		{"/ws", "GET", 30, "websocket"},
		{"/api/email/send", "POST", 20, "email"},
		{"/api/users", "GET", 100, "default"},
		{"/api/users", "POST", 20, "users-write"},
		{"/api/users", "PUT", 20, "users-write"},
		{"/api/users", "DELETE", 20, "users-write"},
		{"/api/users/42", "PATCH", 20, "users-write"},
		{"/api/grades", "GET", 100, "default"},
		{"/somewhere/else", "POST", 100, "default"},
	}

	for _, tc := range cases {
		policy, name := limiter.SelectPolicy(tc.path, tc.method)
		if policy.MaxRequests != tc.wantMax || name != tc.wantName {
			t.Fatalf("SelectPolicy(%s %s) = (%d, %s), want (%d, %s)",
				tc.method, tc.path, policy.MaxRequests, name, tc.wantMax, tc.wantName)
		}
	}
}

func TestCheck_ExhaustsThenDenies(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	limiter.SetNowFunc(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		result, err := limiter.Check("/api/auth/login", "POST", "203.0.113.7")
		if err != nil {
			t.Fatalf("Check() error: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d denied, want admitted", i+1)
		}
		if result.Remaining != 5-(i+1) {
			t.Fatalf("request %d: Remaining = %d, want %d", i+1, result.Remaining, 5-(i+1))
		}
	}

	result, err := limiter.Check("/api/auth/login", "POST", "203.0.113.7")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if result.Allowed {
		t.Fatalf("sixth auth request admitted, want denied")
	}
	if result.RetryAfter < 1 {
		t.Fatalf("RetryAfter = %d, want >= 1", result.RetryAfter)
	}
}

func TestCheck_PolicyClassesDoNotShareWindows(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	limiter.SetNowFunc(func() time.Time { return now })

	// Exhaust the strict auth budget.
	for i := 0; i < 5; i++ {
		if result, _ := limiter.Check("/api/auth/login", "POST", "student-42"); !result.Allowed {
			t.Fatalf("auth request %d denied prematurely", i+1)
		}
	}

	// The generous default budget for the same caller must be untouched.
	result, err := limiter.Check("/api/grades", "GET", "student-42")
	if err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	if !result.Allowed {
		t.Fatalf("default-class request denied after auth exhaustion, want admitted")
	}
	if result.Remaining != 99 {
		t.Fatalf("Remaining = %d, want 99", result.Remaining)
	}
}

func TestHeaderValues(t *testing.T) {
	resetAt := time.Date(2026, 3, 10, 12, 1, 0, 0, time.UTC)

	admitted := HeaderValues(Result{Allowed: true, Limit: 100, Remaining: 42, ResetAt: resetAt})
	if admitted["X-RateLimit-Limit"] != "100" {
		t.Fatalf("X-RateLimit-Limit = %q, want %q", admitted["X-RateLimit-Limit"], "100")
	}
	if admitted["X-RateLimit-Remaining"] != "42" {
		t.Fatalf("X-RateLimit-Remaining = %q, want %q", admitted["X-RateLimit-Remaining"], "42")
	}
	if admitted["X-RateLimit-Reset"] != "2026-03-10T12:01:00Z" {
		t.Fatalf("X-RateLimit-Reset = %q, want RFC3339 UTC", admitted["X-RateLimit-Reset"])
	}
	if _, ok := admitted["Retry-After"]; ok {
		t.Fatalf("Retry-After present on admission, want absent")
	}

	denied := HeaderValues(Result{Allowed: false, Limit: 5, Remaining: 0, ResetAt: resetAt, RetryAfter: 46})
	if denied["Retry-After"] != "46" {
		t.Fatalf("Retry-After = %q, want %q", denied["Retry-After"], "46")
	}
}
