package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusops/timetable-api/internal/service"
)

// Metrics records per-request counters and latency. The route template is
// used as the path label so parameterized routes do not explode metric
// cardinality; unmatched requests fall back to the raw path.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		if route == "/metrics" {
			return
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
