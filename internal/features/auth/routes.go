package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches authentication endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler) {
	auth := router.Group("/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.POST("/logout", handler.Logout)
		auth.POST("/refresh-token", handler.RefreshToken)
		auth.POST("/request-password-reset", handler.RequestPasswordReset)
		auth.POST("/reset-password", handler.ResetPassword)
		// camelCase aliases used by older clients
		auth.POST("/refreshToken", handler.RefreshToken)
		auth.POST("/requestPasswordReset", handler.RequestPasswordReset)
		auth.POST("/resetPassword", handler.ResetPassword)
	}
}
