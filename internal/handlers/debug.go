package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minichat/internal/telemetry"
)

// SubscriberCounter reports open live queries per topic.
type SubscriberCounter interface {
	Subscribers(topic string) int
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, emitter *telemetry.AuditEmitter, probe SubscriberCounter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "debug", "audit test", callerID(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/subscribers", func(c *gin.Context) {
		topic := c.Query("topic")
		if topic == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"topic": topic, "subscribers": probe.Subscribers(topic)})
	})
}
