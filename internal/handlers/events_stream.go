package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/sekolahku/portal-gateway/internal/monitor"
)

// StreamSecurityEvents streams live security events over SSE. Slow clients
// drop events rather than stalling the broadcaster.
func StreamSecurityEvents(b *monitor.Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, events := b.Subscribe()
		if events == nil {
			c.JSON(503, gin.H{"error": "Event stream at capacity, try again later"})
			return
		}
		defer b.Unsubscribe(clientID)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		clientGone := c.Request.Context().Done()
		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-events:
				if !ok {
					return false
				}
				c.SSEvent("security_event", event)
				return true
			case <-clientGone:
				return false
			}
		})
	}
}
