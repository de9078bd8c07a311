package course

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches course endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	courses := router.Group("/courses")
	{
		courses.GET("", append(middleware.Authenticated(), handler.List)...)
		courses.GET("/:courseId", append(middleware.Authenticated(), handler.GetByID)...)
		courses.POST("", append(middleware.AdminOnly(), handler.Create)...)
		courses.PUT("/:courseId", append(middleware.AdminOnly(), handler.Update)...)
		courses.DELETE("/:courseId", append(middleware.AdminOnly(), handler.Delete)...)
	}

	router.GET("/media/lookup", append(middleware.AdminOnly(), handler.LookupMedia)...)
}
