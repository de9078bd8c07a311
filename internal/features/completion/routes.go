package completion

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches completion endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	videos := router.Group("/videos/:videoId/completion")
	{
		videos.POST("", append(middleware.Learners(), handler.Mark)...)
		videos.DELETE("", append(middleware.Learners(), handler.Unmark)...)
		videos.POST("/toggle", append(middleware.Learners(), handler.Toggle)...)
	}

	router.GET("/courses/:courseId/completions", append(middleware.Authenticated(), handler.ListForCourse)...)
}
