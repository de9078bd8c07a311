package progress

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches progress endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	router.GET("/progress/me", append(middleware.Learners(), handler.Me)...)
	router.GET("/progress/courses/:courseId", append(middleware.Learners(), handler.Course)...)
	router.GET("/users/:userId/progress", append(middleware.Authenticated(), handler.ForUser)...)
}
