package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"inspectview/pkg/logger"
)

// Logger middleware logs HTTP requests with timing and status. Health probes
// are logged at debug level.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		encoding := c.GetHeader("Content-Encoding")

		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"subject", c.GetString("subject"),
		}
		if encoding != "" {
			fields = append(fields, "content_encoding", encoding)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, "error", errs)
		}

		l := log.WithContext(c.Request.Context())
		if strings.HasPrefix(path, "/health/") {
			l.Debugw("http request", fields...)
			return
		}
		l.Infow("http request", fields...)
	}
}
