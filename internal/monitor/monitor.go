package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Detection thresholds for campaign patterns. Counts are per source IP over
// the trailing hour; the comparison is strictly greater-than.
const (
	bruteForceThreshold   = 10
	xssCampaignThreshold  = 5
	sqliCampaignThreshold = 3
	patternWindow         = time.Hour
)

// DefaultMaxEvents bounds the in-memory event log
const DefaultMaxEvents = 1000

// Sink persists events outside the process. Append must never block; the
// monitor calls it fire-and-forget on the request path.
type Sink interface {
	Append(event SecurityEvent)
}

// Monitor owns the bounded security-event log. It is constructed explicitly
// and injected wherever events are produced or queried.
type Monitor struct {
	mu        sync.RWMutex
	events    []SecurityEvent
	maxEvents int

	sink        Sink
	broadcaster *Broadcaster
	nowFunc     func() time.Time
}

// NewMonitor creates a monitor holding at most maxEvents entries.
// maxEvents <= 0 selects the default bound.
func NewMonitor(maxEvents int) *Monitor {
	if maxEvents <= 0 {
		maxEvents = DefaultMaxEvents
	}
	return &Monitor{
		events:    make([]SecurityEvent, 0, maxEvents),
		maxEvents: maxEvents,
		nowFunc:   time.Now,
	}
}

// SetSink attaches a persistent event sink (best-effort, async)
func (m *Monitor) SetSink(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
}

// SetBroadcaster attaches a live event broadcaster
func (m *Monitor) SetBroadcaster(b *Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcaster = b
}

// SetNowFunc overrides the clock source (tests)
func (m *Monitor) SetNowFunc(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowFunc = now
}

// LogEvent appends an event to the bounded FIFO, evicting the oldest entry
// beyond the bound. Persistence and broadcast are fire-and-forget; a slow or
// failing sink never delays the admission path.
func (m *Monitor) LogEvent(event SecurityEvent) {
	m.mu.Lock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.nowFunc()
	}

	m.events = append(m.events, event)
	if len(m.events) > m.maxEvents {
		// Evict oldest; copy to keep the backing array from growing unbounded.
		overflow := len(m.events) - m.maxEvents
		m.events = append(m.events[:0:0], m.events[overflow:]...)
	}

	sink := m.sink
	broadcaster := m.broadcaster
	m.mu.Unlock()

	if sink != nil {
		sink.Append(event)
	}
	if broadcaster != nil {
		broadcaster.Broadcast(&event)
	}
}

// GetRecentEvents returns up to limit events, newest first
func (m *Monitor) GetRecentEvents(limit int) []SecurityEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newestFirstLocked(limit, func(SecurityEvent) bool { return true })
}

// GetEventsByType returns up to limit events of the given type, newest first
func (m *Monitor) GetEventsByType(eventType EventType, limit int) []SecurityEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newestFirstLocked(limit, func(e SecurityEvent) bool { return e.Type == eventType })
}

// GetEventsBySeverity returns up to limit events of the given severity, newest first
func (m *Monitor) GetEventsBySeverity(severity Severity, limit int) []SecurityEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.newestFirstLocked(limit, func(e SecurityEvent) bool { return e.Severity == severity })
}

func (m *Monitor) newestFirstLocked(limit int, match func(SecurityEvent) bool) []SecurityEvent {
	if limit <= 0 {
		limit = len(m.events)
	}

	out := make([]SecurityEvent, 0, limit)
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(m.events[i]) {
			out = append(out, m.events[i])
		}
	}
	return out
}

// GetSecurityStats returns an aggregate snapshot: counts by type and
// severity, the top 10 offending IPs, and the 10 most recent events.
func (m *Monitor) GetSecurityStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		TotalEvents:      len(m.events),
		EventsByType:     make(map[EventType]int),
		EventsBySeverity: make(map[Severity]int),
	}

	ipCounts := make(map[string]int)
	for _, e := range m.events {
		stats.EventsByType[e.Type]++
		stats.EventsBySeverity[e.Severity]++
		if e.ClientIP != "" {
			ipCounts[e.ClientIP]++
		}
	}

	offenders := make([]OffenderCount, 0, len(ipCounts))
	for ip, count := range ipCounts {
		offenders = append(offenders, OffenderCount{IP: ip, Count: count})
	}
	sort.Slice(offenders, func(i, j int) bool {
		if offenders[i].Count != offenders[j].Count {
			return offenders[i].Count > offenders[j].Count
		}
		return offenders[i].IP < offenders[j].IP
	})
	if len(offenders) > 10 {
		offenders = offenders[:10]
	}
	stats.TopOffenders = offenders

	stats.RecentActivity = m.newestFirstLocked(10, func(SecurityEvent) bool { return true })
	return stats
}

// DetectAttackPatterns scans the last hour of events for known campaign
// signatures: brute-force auth, XSS campaigns and SQL injection campaigns.
func (m *Monitor) DetectAttackPatterns() []AttackPattern {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.nowFunc().Add(-patternWindow)

	authByIP := make(map[string]int)
	xssByIP := make(map[string]int)
	sqliByIP := make(map[string]int)

	for _, e := range m.events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		switch e.Type {
		case EventAuthFailure:
			authByIP[e.ClientIP]++
		case EventXSSAttempt:
			xssByIP[e.ClientIP]++
		case EventSQLInjectionAttempt:
			sqliByIP[e.ClientIP]++
		}
	}

	var patterns []AttackPattern
	if ips := ipsOverThreshold(authByIP, bruteForceThreshold); len(ips) > 0 {
		patterns = append(patterns, AttackPattern{
			Pattern:     "brute_force_auth",
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("%d IP(s) with more than %d auth failures in the last hour", len(ips), bruteForceThreshold),
			AffectedIPs: ips,
		})
	}
	if ips := ipsOverThreshold(xssByIP, xssCampaignThreshold); len(ips) > 0 {
		patterns = append(patterns, AttackPattern{
			Pattern:     "xss_attack_campaign",
			Severity:    SeverityCritical,
			Description: fmt.Sprintf("%d IP(s) with more than %d XSS attempts in the last hour", len(ips), xssCampaignThreshold),
			AffectedIPs: ips,
		})
	}
	if ips := ipsOverThreshold(sqliByIP, sqliCampaignThreshold); len(ips) > 0 {
		patterns = append(patterns, AttackPattern{
			Pattern:     "sql_injection_campaign",
			Severity:    SeverityCritical,
			Description: fmt.Sprintf("%d IP(s) with more than %d SQL injection attempts in the last hour", len(ips), sqliCampaignThreshold),
			AffectedIPs: ips,
		})
	}

	return patterns
}

// ipsOverThreshold returns IPs whose count is strictly greater than the
// threshold, sorted for stable output
func ipsOverThreshold(counts map[string]int, threshold int) []string {
	var ips []string
	for ip, count := range counts {
		if count > threshold {
			ips = append(ips, ip)
		}
	}
	sort.Strings(ips)
	return ips
}

// ClearOldEvents removes events older than the given horizon in hours
// (defaults to 24 when non-positive) and returns the number removed.
func (m *Monitor) ClearOldEvents(olderThanHours int) int {
	if olderThanHours <= 0 {
		olderThanHours = 24
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.nowFunc().Add(-time.Duration(olderThanHours) * time.Hour)

	// Events are insertion-ordered; find the first one still inside the horizon.
	keep := 0
	for keep < len(m.events) && m.events[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep == 0 {
		return 0
	}

	m.events = append(m.events[:0:0], m.events[keep:]...)
	return keep
}

// Len returns the current number of events held in memory
func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
