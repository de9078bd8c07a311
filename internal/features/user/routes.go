package user

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// RegisterRoutes attaches user endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	users := router.Group("/users")
	{
		users.GET("/me", append(middleware.Authenticated(), handler.Me)...)

		managers := middleware.RequireRoles(types.RoleCompany)
		users.GET("", append(managers, handler.List)...)
		users.POST("", append(managers, handler.Create)...)

		users.GET("/:userId", append(middleware.Authenticated(), handler.GetByID)...)
		users.PUT("/:userId", append(middleware.Authenticated(), handler.Update)...)
		users.DELETE("/:userId", append(managers, handler.Delete)...)
	}
}
