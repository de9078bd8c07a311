package enrollment

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
)

// RegisterRoutes attaches enrollment endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	router.POST("/courses/:courseId/enrollment", append(middleware.Authenticated(), handler.Enroll)...)
	router.DELETE("/courses/:courseId/enrollment", append(middleware.Authenticated(), handler.Unenroll)...)

	router.GET("/enrollments/me", append(middleware.Learners(), handler.Mine)...)
	router.GET("/users/:userId/enrollments", append(middleware.Authenticated(), handler.ForUser)...)
}
