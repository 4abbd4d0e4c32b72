package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crossmark-io/crossmark-api/internal/service"
)

// Metrics records per-request latency and status counts. The route template
// is used as the path label so ids do not explode label cardinality.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
