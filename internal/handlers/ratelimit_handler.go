package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/ratelimit"
)

// GetRateLimitConfig returns the current policy table
func GetRateLimitConfig(cm *ratelimit.ConfigManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cm == nil {
			c.JSON(500, gin.H{"error": "Rate limit manager not initialized"})
			return
		}

		c.JSON(200, cm.GetConfig())
	}
}

// UpdateRateLimitConfig replaces the policy table
func UpdateRateLimitConfig(cm *ratelimit.ConfigManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cm == nil {
			c.JSON(500, gin.H{"error": "Rate limit manager not initialized"})
			return
		}

		var config ratelimit.Config
		if err := c.ShouldBindJSON(&config); err != nil {
			c.JSON(400, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		if err := ratelimit.ValidateConfig(config); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := cm.UpdateConfig(config); err != nil {
			c.JSON(500, gin.H{"error": "Failed to save policy config: " + err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"message": "Rate limit configuration updated",
			"config":  config,
		})
	}
}

// ResetRateLimitConfig restores the built-in policy table
func ResetRateLimitConfig(cm *ratelimit.ConfigManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cm == nil {
			c.JSON(500, gin.H{"error": "Rate limit manager not initialized"})
			return
		}

		defaultConfig := ratelimit.GetDefaultConfig()
		if err := cm.UpdateConfig(defaultConfig); err != nil {
			c.JSON(500, gin.H{"error": "Failed to reset policy config: " + err.Error()})
			return
		}

		c.JSON(200, gin.H{
			"message": "Rate limit configuration reset to defaults",
			"config":  defaultConfig,
		})
	}
}
