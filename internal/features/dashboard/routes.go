package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/admin", append(middleware.AdminOnly(), handler.GetAdminDashboard)...)
		dashboard.GET("/company", append(middleware.RequireRoles(types.RoleCompany), handler.GetCompanyDashboard)...)
		dashboard.GET("/me", append(middleware.Learners(), handler.GetLearnerDashboard)...)
		dashboard.GET("/system-stats", append(middleware.AdminOnly(), handler.GetSystemStats)...)
		dashboard.GET("/logs", append(middleware.AdminOnly(), handler.GetSystemLogs)...)
		dashboard.POST("/logs/clear", append(middleware.AdminOnly(), handler.ClearLogs)...)
	}
}
