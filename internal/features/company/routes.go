package company

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// RegisterRoutes attaches company endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	company := router.Group("/company")
	{
		company.GET("/overview", append(middleware.RequireRoles(types.RoleCompany), handler.Overview)...)
		company.GET("/report", append(middleware.RequireRoles(types.RoleCompany), handler.Report)...)
	}
}
