package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/starshippsychics/trust-engine/internal/utils/metrics"
)

// MetricsMiddleware records request latency per method, route and status.
// The route template is used, not the raw path, to keep cardinality bounded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
