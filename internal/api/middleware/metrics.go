package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"optimizer-pro/internal/metrics"
)

// Metrics returns a middleware for collecting request metrics
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.RequestsTotal.WithLabelValues(method, status, path).Inc()
		metrics.RequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
