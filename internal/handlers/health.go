package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/config"
	"github.com/sekolahku/portal-gateway/internal/monitor"
	"github.com/sekolahku/portal-gateway/internal/ratelimit"
)

var startTime = time.Now()

// HealthCheck is the minimal unauthenticated health probe.
// Only basic status, no system information.
func HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "healthy",
		})
	}
}

// HealthCheckDetailed returns full gateway state; protected route
func HealthCheckDetailed(envCfg *config.EnvConfig, cm *ratelimit.ConfigManager, mon *monitor.Monitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := cm.GetConfig()

		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(startTime).Seconds(),
			"mode":      envCfg.Env,
			"rateLimit": gin.H{
				"ruleCount":     len(cfg.Rules),
				"defaultLimit":  cfg.Default.MaxRequests,
				"defaultWindow": cfg.Default.WindowMs,
			},
			"security": gin.H{
				"eventCount": mon.Len(),
				"failOpen":   envCfg.FailOpen,
			},
		})
	}
}
