package module

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches module endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	modules := router.Group("/courses/:courseId/modules")
	{
		modules.GET("", append(middleware.Authenticated(), handler.List)...)
		modules.POST("", append(middleware.AdminOnly(), handler.Create)...)
		modules.PUT("/:moduleId", append(middleware.AdminOnly(), handler.Update)...)
		modules.DELETE("/:moduleId", append(middleware.AdminOnly(), handler.Delete)...)
	}
}
