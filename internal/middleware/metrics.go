package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route so 404 probes
// do not create a series per raw path.
const unmatchedRoute = "unmatched"

// Metrics records request duration and totals per route template.
// Paths listed in skip (such as the scrape endpoint) are not observed.
func Metrics(metricsSvc *service.MetricsService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, path := range skip {
		skipped[path] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
