package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"zocheckout.com/app/internal/shared/apperr"
	"zocheckout.com/app/pkg/metrics"
)

// Metrics records request count and latency per route pattern.
func Metrics(m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		// failed requests are written later by ErrorHandler
		if !c.Writer.Written() && len(c.Errors) > 0 {
			status = apperr.HTTPStatus(c.Errors.Last().Err)
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}
