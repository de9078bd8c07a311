package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	corsAllowHeaders = "Authorization,Content-Type,X-Requested-With,X-Request-ID,If-None-Match"
	// Content-Disposition names report downloads; ETag backs leaderboard revalidation.
	corsExposeHeaders = "Content-Disposition,ETag,Retry-After,X-Request-ID"
	corsMaxAge        = "600"
)

// CORS admits browser calls, including Socket.IO polling with credentials, from the
// configured origins. An empty list or "*" admits any origin. Preflights from other
// origins are refused with 403; their simple requests get no CORS headers.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	origins := map[string]struct{}{}
	anyOrigin := false
	for _, origin := range allowedOrigins {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		switch origin {
		case "":
		case "*":
			anyOrigin = true
		default:
			origins[origin] = struct{}{}
		}
	}
	anyOrigin = anyOrigin || len(origins) == 0

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		header := c.Writer.Header()
		header.Add("Vary", "Origin")

		_, listed := origins[strings.ToLower(origin)]
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		if !anyOrigin && !listed {
			if preflight {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		// Credentials rule out a literal "*", so the origin is echoed.
		header.Set("Access-Control-Allow-Origin", origin)
		header.Set("Access-Control-Allow-Credentials", "true")

		if preflight {
			header.Set("Access-Control-Allow-Methods", corsAllowMethods)
			header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			header.Set("Access-Control-Max-Age", corsMaxAge)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		header.Set("Access-Control-Expose-Headers", corsExposeHeaders)
		c.Next()
	}
}
