package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/pkg/observability"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
)

var errPanic = errors.New("panic recovered")

// Recovery recovers from panics, logs them with stack traces and reports them to Sentry.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.ErrorContext(c.Request.Context(),
					"panic recovered",
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("client_ip", c.ClientIP()),
					slog.Any("error", recovered),
					slog.String("stack", string(debug.Stack())),
				)

				observability.CapturePanic(c.Request.Context(), recovered, map[string]string{
					"route": c.FullPath(),
				})

				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, "An unexpected error occurred", errPanic)
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}
