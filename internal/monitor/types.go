package monitor

import "time"

// EventType classifies a security event
type EventType string

const (
	EventAuthFailure         EventType = "auth_failure"
	EventRateLimitExceeded   EventType = "rate_limit_exceeded"
	EventXSSAttempt          EventType = "xss_attempt"
	EventSQLInjectionAttempt EventType = "sql_injection_attempt"
	EventCSRFFailure         EventType = "csrf_failure"
	EventSuspiciousActivity  EventType = "suspicious_activity"
	EventBlockedRequest      EventType = "blocked_request"
)

// Severity grades a security event
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SecurityEvent is a single recorded security event. Events are immutable
// once appended to the monitor.
type SecurityEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Method    string    `json:"method,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// AttackPattern is a detected attack signature, derived on demand from the
// recent event window and never stored.
type AttackPattern struct {
	Pattern     string   `json:"pattern"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	AffectedIPs []string `json:"affectedIps"`
}

// OffenderCount ranks one client IP by event count
type OffenderCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// Stats is an aggregate snapshot of the event log
type Stats struct {
	TotalEvents      int               `json:"totalEvents"`
	EventsByType     map[EventType]int `json:"eventsByType"`
	EventsBySeverity map[Severity]int  `json:"eventsBySeverity"`
	TopOffenders     []OffenderCount   `json:"topOffenders"`
	RecentActivity   []SecurityEvent   `json:"recentActivity"`
}
