package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"optimizer-pro/internal/logger"
)

// ContextualLogger injects a request-scoped logger into the request context.
// The component name is derived from the matched route so log lines group by
// endpoint; trace/span IDs are picked up when the tracing middleware ran first.
func ContextualLogger(defaultComponent string) gin.HandlerFunc {
	return func(c *gin.Context) {
		component := defaultComponent
		if routePath := c.FullPath(); routePath != "" {
			component = strings.Trim(strings.ReplaceAll(routePath, "/", "-"), "-")
			if component == "" {
				component = "root"
			}
		}

		requestLogger := logger.GetLoggerWithContext(c.Request.Context(), component)
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), requestLogger))

		c.Next()
	}
}
