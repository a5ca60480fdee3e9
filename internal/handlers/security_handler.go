package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/monitor"
)

// GetSecurityStats returns the aggregate event snapshot
func GetSecurityStats(mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, mon.GetSecurityStats())
	}
}

// GetSecurityEvents returns recent events, optionally filtered by type or
// severity. Filters are mutually exclusive; type wins when both are given.
func GetSecurityEvents(mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 1000 {
				c.JSON(400, gin.H{"error": "limit must be between 1 and 1000"})
				return
			}
			limit = parsed
		}

		var events []monitor.SecurityEvent
		switch {
		case c.Query("type") != "":
			events = mon.GetEventsByType(monitor.EventType(c.Query("type")), limit)
		case c.Query("severity") != "":
			events = mon.GetEventsBySeverity(monitor.Severity(c.Query("severity")), limit)
		default:
			events = mon.GetRecentEvents(limit)
		}

		c.JSON(200, gin.H{
			"events": events,
			"count":  len(events),
		})
	}
}

// GetAttackPatterns runs detection over the last hour of events
func GetAttackPatterns(mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		patterns := mon.DetectAttackPatterns()
		if patterns == nil {
			patterns = []monitor.AttackPattern{}
		}
		c.JSON(200, gin.H{
			"patterns": patterns,
			"count":    len(patterns),
		})
	}
}

// ClearOldSecurityEvents removes events older than the given horizon
// (default 24 hours)
func ClearOldSecurityEvents(mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		hours := 24
		if raw := c.Query("olderThanHours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(400, gin.H{"error": "olderThanHours must be a positive integer"})
				return
			}
			hours = parsed
		}

		removed := mon.ClearOldEvents(hours)
		c.JSON(200, gin.H{
			"message": "Old security events cleared",
			"removed": removed,
		})
	}
}
