package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/monitor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSecurityRouter(mon *monitor.Monitor) *gin.Engine {
	engine := gin.New()
	engine.GET("/stats", GetSecurityStats(mon))
	engine.GET("/events", GetSecurityEvents(mon))
	engine.GET("/patterns", GetAttackPatterns(mon))
	engine.DELETE("/events", ClearOldSecurityEvents(mon))
	return engine
}

func seedMonitor(mon *monitor.Monitor) {
	for i := 0; i < 3; i++ {
		mon.LogEvent(monitor.SecurityEvent{
			Type:     monitor.EventAuthFailure,
			Severity: monitor.SeverityMedium,
			ClientIP: "10.0.0.1",
		})
	}
	mon.LogEvent(monitor.SecurityEvent{
		Type:     monitor.EventCSRFFailure,
		Severity: monitor.SeverityHigh,
		ClientIP: "10.0.0.2",
	})
}

func TestGetSecurityStats(t *testing.T) {
	mon := monitor.NewMonitor(100)
	seedMonitor(mon)
	engine := newSecurityRouter(mon)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest("GET", "/stats", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats monitor.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid stats body: %v", err)
	}
	if stats.TotalEvents != 4 {
		t.Fatalf("TotalEvents = %d, want 4", stats.TotalEvents)
	}
	if stats.EventsByType[monitor.EventAuthFailure] != 3 {
		t.Fatalf("auth_failure count = %d, want 3", stats.EventsByType[monitor.EventAuthFailure])
	}
}

func TestGetSecurityEvents_TypeFilter(t *testing.T) {
	mon := monitor.NewMonitor(100)
	seedMonitor(mon)
	engine := newSecurityRouter(mon)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest("GET", "/events?type=csrf_failure", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Events []monitor.SecurityEvent `json:"events"`
		Count  int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Count != 1 || len(body.Events) != 1 {
		t.Fatalf("count = %d, want 1", body.Count)
	}
	if body.Events[0].Type != monitor.EventCSRFFailure {
		t.Fatalf("type = %q, want csrf_failure", body.Events[0].Type)
	}
}

func TestGetSecurityEvents_RejectsBadLimit(t *testing.T) {
	mon := monitor.NewMonitor(100)
	engine := newSecurityRouter(mon)

	for _, limit := range []string{"0", "-5", "1001", "abc"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest("GET", "/events?limit="+limit, nil))
		if rec.Code != 400 {
			t.Fatalf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestGetAttackPatterns_EmptyIsArray(t *testing.T) {
	mon := monitor.NewMonitor(100)
	engine := newSecurityRouter(mon)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest("GET", "/patterns", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Patterns []monitor.AttackPattern `json:"patterns"`
		Count    int                     `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Patterns == nil || body.Count != 0 {
		t.Fatalf("want empty array with count 0, got %+v", body)
	}
}

func TestClearOldSecurityEvents_RejectsBadHorizon(t *testing.T) {
	mon := monitor.NewMonitor(100)
	engine := newSecurityRouter(mon)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest("DELETE", "/events?olderThanHours=-1", nil))
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
