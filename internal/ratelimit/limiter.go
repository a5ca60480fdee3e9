package ratelimit

import (
	"strconv"
	"time"
)

// Limiter maps inbound requests to policies and consults the store for an
// admit/deny decision. Denial is a first-class result, never an error; the
// error return surfaces store failures only.
type Limiter struct {
	store   Store
	manager *ConfigManager
	nowFunc func() time.Time
}

// NewLimiter creates a limiter over the given store and config manager
func NewLimiter(store Store, manager *ConfigManager) *Limiter {
	return &Limiter{
		store:   store,
		manager: manager,
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the clock source (tests)
func (l *Limiter) SetNowFunc(now func() time.Time) {
	l.nowFunc = now
}

// SelectPolicy resolves the policy for a path/method pair from the ordered
// rule table, falling back to the default policy
func (l *Limiter) SelectPolicy(path, method string) (Policy, string) {
	return l.manager.GetConfig().Select(path, method)
}

// Check resolves the policy for the request and takes an admission decision
// for the identifier. Windows are kept per policy class so a caller's auth
// budget and general budget do not bleed into each other.
func (l *Limiter) Check(path, method, identifier string) (Result, error) {
	policy, ruleName := l.SelectPolicy(path, method)
	return l.Decide(policy, ruleName+":"+identifier, l.nowFunc())
}

// Decide runs one admission decision against the store
func (l *Limiter) Decide(policy Policy, identifier string, now time.Time) (Result, error) {
	return l.store.Take(identifier, policy, now)
}

// HeaderValues formats a decision into the quota response headers. Pure:
// the same result always yields the same header set. Retry-After appears
// only on denial.
func HeaderValues(result Result) map[string]string {
	headers := map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(result.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(result.Remaining),
		"X-RateLimit-Reset":     result.ResetAt.UTC().Format(time.RFC3339),
	}
	if !result.Allowed {
		headers["Retry-After"] = strconv.Itoa(result.RetryAfter)
	}
	return headers
}
