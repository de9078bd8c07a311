package ranking

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches leaderboard endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	rankings := router.Group("/rankings")
	{
		rankings.GET("", append(middleware.Authenticated(), handler.List)...)
		rankings.GET("/me", append(middleware.Authenticated(), handler.Me)...)

		rankings.GET("/snapshots", append(middleware.Authenticated(), handler.ListSnapshots)...)
		rankings.GET("/snapshots/:period", append(middleware.Authenticated(), handler.GetSnapshot)...)
		rankings.POST("/snapshots", append(middleware.AdminOnly(), handler.CreateSnapshot)...)
	}
}
