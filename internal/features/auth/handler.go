package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/email"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/response"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const emailTimeout = 30 * time.Second

// Handler processes authentication HTTP requests.
type Handler struct {
	db          *gorm.DB
	logger      *slog.Logger
	tokens      TokenConfig
	emailClient *email.Client
}

// NewHandler constructs an auth handler instance.
func NewHandler(db *gorm.DB, logger *slog.Logger, tokens TokenConfig, emailClient *email.Client) *Handler {
	return &Handler{
		db:          db,
		logger:      logger,
		tokens:      tokens,
		emailClient: emailClient,
	}
}

// Register creates a new individual or company account.
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		FullName    string  `json:"fullName" binding:"required,max=100"`
		Email       string  `json:"email" binding:"required,email"`
		Password    string  `json:"password" binding:"required"`
		Role        string  `json:"role"`
		CompanyName *string `json:"companyName" binding:"omitempty,max=150"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	authResp, err := Register(h.db.WithContext(c.Request.Context()), RegisterInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Role:        types.Role(req.Role),
		CompanyName: req.CompanyName,
	}, h.tokens)
	if err != nil {
		h.respondError(c, err, "registration failed")
		return
	}

	to, name := authResp.User.Email, authResp.User.FullName
	h.sendAsync("welcome", to, func(ctx context.Context) error {
		return h.emailClient.SendWelcome(ctx, to, name)
	})

	response.Created(c, authResp, "Registration successful")
}

// Login authenticates a user and returns JWT tokens.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	authResp, err := Login(h.db.WithContext(c.Request.Context()), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, h.tokens)
	if err != nil {
		h.respondError(c, err, "login failed")
		return
	}

	response.Success(c, http.StatusOK, authResp, "Login successful", nil)
}

// Logout clears the user's refresh token.
func (h *Handler) Logout(c *gin.Context) {
	token := ExtractToken(c.GetHeader("Authorization"))
	if token == "" {
		response.ErrorWithLog(h.logger, c, http.StatusUnauthorized, "no access token provided", nil)
		return
	}

	if err := Logout(h.db.WithContext(c.Request.Context()), token, h.tokens); err != nil {
		h.respondError(c, err, "logout failed")
		return
	}

	response.Success(c, http.StatusOK, true, "Logout successful", nil)
}

// RequestPasswordReset sends a password reset email. The answer is the same whether or not the email exists.
func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	resetInfo, err := RequestPasswordReset(h.db.WithContext(c.Request.Context()), req.Email, h.tokens)
	if err != nil {
		h.respondError(c, err, "failed to request password reset")
		return
	}

	if resetInfo != nil {
		info := *resetInfo
		h.sendAsync("password reset", info.Email, func(ctx context.Context) error {
			return h.emailClient.SendPasswordReset(ctx, info.Email, info.FullName, info.Token)
		})
		h.logger.Info("password reset requested", slog.String("email", info.Email))
	}

	response.Success(c, http.StatusOK, true, "If the email exists in our system, a password reset link has been sent.", nil)
}

// ResetPassword changes a user's password using a reset token.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"newPassword" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	if err := ResetPassword(h.db.WithContext(c.Request.Context()), req.Token, req.NewPassword, h.tokens); err != nil {
		h.respondError(c, err, "password reset failed")
		return
	}

	response.Success(c, http.StatusOK, true, "Password reset successful. Please login with your new password.", nil)
}

// RefreshToken rotates the token pair.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(request.BindingError(err))
		return
	}

	tokenPair, err := RefreshAccessToken(h.db.WithContext(c.Request.Context()), req.RefreshToken, h.tokens)
	if err != nil {
		h.respondError(c, err, "token refresh failed")
		return
	}

	response.Success(c, http.StatusOK, tokenPair, "", nil)
}

func (h *Handler) sendAsync(kind, to string, send func(ctx context.Context) error) {
	if h.emailClient == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			h.logger.Error("failed to send email",
				slog.String("kind", kind),
				slog.String("email", to),
				slog.String("error", err.Error()))
		}
	}()
}

func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		status = http.StatusUnauthorized
		message = "Invalid email or password"
	case errors.Is(err, ErrMissingFields):
		status = http.StatusBadRequest
		message = "Missing required fields"
	case errors.Is(err, ErrInvalidEmail):
		status = http.StatusBadRequest
		message = "Invalid email format"
	case errors.Is(err, ErrWeakPassword), errors.Is(err, user.ErrInvalidPassword):
		status = http.StatusBadRequest
		message = "Password must be at least 8 characters long"
	case errors.Is(err, ErrRoleNotAllowed):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, user.ErrCompanyNameMissing), errors.Is(err, user.ErrFullNameRequired), errors.Is(err, user.ErrEmailRequired):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, user.ErrEmailTaken):
		status = http.StatusConflict
		message = "Email already exists"
	case errors.Is(err, ErrInactiveAccount), errors.Is(err, ErrInactiveCompany):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, ErrInvalidToken):
		status = http.StatusUnauthorized
		message = "Invalid or expired token"
	case errors.Is(err, ErrInvalidTokenType):
		status = http.StatusBadRequest
		message = "Invalid token type"
	case errors.Is(err, ErrResetTokenExpired):
		status = http.StatusBadRequest
		message = "Reset link has expired. Please request a new one."
	case errors.Is(err, user.ErrUserNotFound):
		status = http.StatusNotFound
		message = "User not found"
	}

	response.ErrorWithLog(h.logger, c, status, message, err)
}
