package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheControl marks API, health and metrics responses as uncacheable.
// Handlers that can be revalidated opt back in with response.SuccessWithCache.
func CacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uncacheable(c.Request.URL.Path) {
			header := c.Writer.Header()
			header.Set("Cache-Control", "no-store")
			header.Set("Pragma", "no-cache")
		}
		c.Next()
	}
}

func uncacheable(path string) bool {
	switch path {
	case "/health", "/ready", "/version", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/debug/")
}
