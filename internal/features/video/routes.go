package video

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches video endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	videos := router.Group("/modules/:moduleId/videos")
	{
		videos.GET("", append(middleware.Authenticated(), handler.List)...)
		videos.POST("", append(middleware.AdminOnly(), handler.Create)...)
		videos.PUT("/:videoId", append(middleware.AdminOnly(), handler.Update)...)
		videos.DELETE("/:videoId", append(middleware.AdminOnly(), handler.Delete)...)
	}
}
