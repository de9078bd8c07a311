package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs failed requests at warn/error and everything else at debug.
// The request id comes from the request context set by RequestID.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}
		if userID, ok := c.Get("userId"); ok {
			attrs = append(attrs, slog.Any("user_id", userID))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.ErrorContext(ctx, "http_request_error", attrs...)
		case status >= 400:
			logger.WarnContext(ctx, "http_request_warning", attrs...)
		default:
			logger.DebugContext(ctx, "http_request", attrs...)
		}
	}
}
