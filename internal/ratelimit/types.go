package ratelimit

import "time"

// Policy defines a sliding-window rate limit
type Policy struct {
	WindowMs    int `json:"windowMs"`
	MaxRequests int `json:"maxRequests"`
}

// Window returns the policy window as a duration
func (p Policy) Window() time.Duration {
	return time.Duration(p.WindowMs) * time.Millisecond
}

// Rule binds a policy to a path/method match. Rules are evaluated in order,
// first match wins; unmatched requests fall back to the default policy.
type Rule struct {
	Name string `json:"name"`
	// Exact path match (takes effect when non-empty)
	Path string `json:"path,omitempty"`
	// Path prefix match (takes effect when non-empty)
	Prefix string `json:"prefix,omitempty"`
	// Allow-list of methods; empty matches all methods
	Methods []string `json:"methods,omitempty"`
	// Methods excluded from this rule even when the path matches
	ExcludeMethods []string `json:"excludeMethods,omitempty"`
	Policy         Policy   `json:"policy"`
}

// Matches reports whether the rule applies to the given path and method
func (r Rule) Matches(path, method string) bool {
	pathMatch := false
	if r.Path != "" && r.Path == path {
		pathMatch = true
	}
	if !pathMatch && r.Prefix != "" && len(path) >= len(r.Prefix) && path[:len(r.Prefix)] == r.Prefix {
		pathMatch = true
	}
	if !pathMatch {
		return false
	}

	for _, m := range r.ExcludeMethods {
		if m == method {
			return false
		}
	}

	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Config is the root rate-limit configuration: an ordered rule table plus
// the default policy for unmatched requests
type Config struct {
	Rules   []Rule `json:"rules"`
	Default Policy `json:"default"`
}

// GetDefaultConfig returns the built-in policy table. Auth endpoints are
// strict, uploads/websocket/email moderate, everything else generous.
func GetDefaultConfig() Config {
	return Config{
		Rules: []Rule{
			{
				Name: "auth",
				Path: "/api/auth",
				// Trailing slash keeps siblings like /api/authoring out.
				Prefix: "/api/auth/",
				Policy: Policy{WindowMs: 60000, MaxRequests: 5},
			},
			{
				Name:   "upload",
				Path:   "/api/files/upload",
				Policy: Policy{WindowMs: 60000, MaxRequests: 10},
			},
			{
				Name:   "websocket",
				Path:   "/ws",
				Policy: Policy{WindowMs: 60000, MaxRequests: 30},
			},
			{
				Name:   "email",
				Path:   "/api/email/send",
				Policy: Policy{WindowMs: 60000, MaxRequests: 20},
			},
			{
				Name:           "users-write",
				Prefix:         "/api/users",
				ExcludeMethods: []string{"GET"},
				Policy:         Policy{WindowMs: 60000, MaxRequests: 20},
			},
		},
		Default: Policy{WindowMs: 60000, MaxRequests: 100},
	}
}

// Select returns the first matching rule's policy and name, or the default
func (c Config) Select(path, method string) (Policy, string) {
	for _, rule := range c.Rules {
		if rule.Matches(path, method) {
			return rule.Policy, rule.Name
		}
	}
	return c.Default, "default"
}
