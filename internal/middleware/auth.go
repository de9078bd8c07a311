package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/utils/jwt"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const (
	contextUserKey   = "user"
	contextUserIDKey = "userId"
)

// User is the authenticated principal stored in the request context.
type User struct {
	ID        uuid.UUID  `gorm:"column:id;primaryKey"`
	Email     string     `gorm:"column:email"`
	FullName  string     `gorm:"column:full_name"`
	Role      types.Role `gorm:"column:role"`
	CompanyID *uuid.UUID `gorm:"column:company_id"`
	Active    bool       `gorm:"column:is_active"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Is reports whether the principal has one of roles.
func (u *User) Is(roles ...types.Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Global instance to be initialized once at startup
var global *AuthMiddleware

// AuthMiddleware holds dependencies for authentication middleware
type AuthMiddleware struct {
	db        *gorm.DB
	jwtSecret string
	logger    *slog.Logger
}

// Initialize sets up the global middleware instance (call once at startup)
func Initialize(db *gorm.DB, jwtSecret string, logger *slog.Logger) {
	global = NewAuthMiddleware(db, jwtSecret, logger)
}

// NewAuthMiddleware creates an auth middleware instance.
func NewAuthMiddleware(db *gorm.DB, jwtSecret string, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		db:        db,
		jwtSecret: jwtSecret,
		logger:    logger,
	}
}

// AuthenticateToken validates the bearer token and loads the user into context.
func (m *AuthMiddleware) AuthenticateToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.ensureAuthenticated(c); !ok {
			return
		}
		c.Next()
	}
}

// AuthorizeRoles lets the request through when the user has one of roles.
// Admins always pass.
func (m *AuthMiddleware) AuthorizeRoles(roles ...types.Role) gin.HandlerFunc {
	return authorizeRoles(m.logger, roles...)
}

func authorizeRoles(logger *slog.Logger, roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		usr, ok := GetUserFromContext(c)
		if !ok {
			response.ErrorWithLog(logger, c, http.StatusUnauthorized, "User not authenticated", nil)
			c.Abort()
			return
		}

		if usr.Role == types.RoleAdmin || usr.Is(roles...) {
			c.Next()
			return
		}

		response.ErrorWithLog(logger, c, http.StatusForbidden, "Access denied: Insufficient permissions.", nil)
		c.Abort()
	}
}

// RequireRoles authenticates and then restricts to roles.
// With no roles any authenticated user passes.
func (m *AuthMiddleware) RequireRoles(roles ...types.Role) []gin.HandlerFunc {
	handlers := []gin.HandlerFunc{m.AuthenticateToken()}
	if len(roles) > 0 {
		handlers = append(handlers, m.AuthorizeRoles(roles...))
	}
	// Callers append their handler; a full slice forces a copy per route.
	return handlers[:len(handlers):len(handlers)]
}

// RequireRoles is the global version of AuthMiddleware.RequireRoles.
func RequireRoles(roles ...types.Role) []gin.HandlerFunc {
	if global == nil {
		panic("middleware not initialized - call middleware.Initialize() first")
	}
	return global.RequireRoles(roles...)
}

// Authenticated admits any signed-in user.
func Authenticated() []gin.HandlerFunc {
	return RequireRoles()
}

// Learners admits workers and individuals (and admins).
func Learners() []gin.HandlerFunc {
	return RequireRoles(types.LearnerRoles...)
}

// SetUser stores the principal in the context.
func SetUser(c *gin.Context, usr *User) {
	c.Set(contextUserKey, usr)
	c.Set(contextUserIDKey, usr.ID)
}

// GetUserFromContext retrieves the authenticated user from the Gin context.
func GetUserFromContext(c *gin.Context) (*User, bool) {
	userVal, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}

	usr, ok := userVal.(*User)
	return usr, ok && usr != nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// LoadPrincipal verifies an access token and loads the active user it names.
func (m *AuthMiddleware) LoadPrincipal(c *gin.Context, token string) (*User, int, string, error) {
	claims, err := jwt.VerifyToken(token, m.jwtSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, http.StatusUnauthorized, "Token expired", err
		}
		return nil, http.StatusUnauthorized, "Invalid token", err
	}
	if claims.Purpose != "" {
		return nil, http.StatusUnauthorized, "Invalid token", jwt.ErrWrongPurpose
	}

	var usr User
	if err := m.db.WithContext(c.Request.Context()).First(&usr, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, http.StatusUnauthorized, "User no longer exists", err
		}
		return nil, http.StatusServiceUnavailable, "Could not verify session, please retry", err
	}

	if !usr.Active {
		return nil, http.StatusForbidden, "Account is deactivated", nil
	}
	return &usr, 0, "", nil
}

func (m *AuthMiddleware) ensureAuthenticated(c *gin.Context) (*User, bool) {
	if usr, ok := GetUserFromContext(c); ok {
		return usr, true
	}

	token := BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		response.ErrorWithLog(m.logger, c, http.StatusUnauthorized, "No token provided", nil)
		c.Abort()
		return nil, false
	}

	usr, status, message, err := m.LoadPrincipal(c, token)
	if usr == nil {
		response.ErrorWithLog(m.logger, c, status, message, err)
		c.Abort()
		return nil, false
	}

	SetUser(c, usr)
	return usr, true
}

// AdminOnly admits administrators.
func AdminOnly() []gin.HandlerFunc {
	return RequireRoles(types.RoleAdmin)
}
