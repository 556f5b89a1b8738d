package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"chatlink-backend/pkg/metrics"
)

// Prometheus records request metrics for every handled route.
func Prometheus(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncrementHTTPRequestsInFlight()

		c.Next()

		m.DecrementHTTPRequestsInFlight()

		// Use the route template so path parameters do not explode
		// label cardinality.
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		m.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}
