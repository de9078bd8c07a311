package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
)

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractToken("Bearer abc"))
	assert.Equal(t, "abc", ExtractToken("abc"))
	assert.Empty(t, ExtractToken(""))
}

func TestRegisterRejectsBadInputBeforeTouchingTheDatabase(t *testing.T) {
	cfg := DefaultTokenConfig("secret", "refresh")

	_, err := Register(nil, RegisterInput{Email: "a@b.co", Password: "longenough"}, cfg)
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = Register(nil, RegisterInput{FullName: "Ana", Email: "nope", Password: "longenough"}, cfg)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = Register(nil, RegisterInput{FullName: "Ana", Email: "a@b.co", Password: "short"}, cfg)
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = Register(nil, RegisterInput{FullName: "Ana", Email: "a@b.co", Password: "longenough", Role: "admin"}, cfg)
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
}

func TestResetPasswordRejectsForeignTokens(t *testing.T) {
	cfg := DefaultTokenConfig("secret", "refresh")

	err := ResetPassword(nil, "not-a-jwt", "longenough", cfg)
	assert.ErrorIs(t, err, ErrInvalidToken)

	err = ResetPassword(nil, "whatever", "short", cfg)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLogoutWithoutTokenIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, logger.Discard(), DefaultTokenConfig("secret", "refresh"), nil)

	router := gin.New()
	router.Use(request.Handler(logger.Discard()))
	RegisterRoutes(router.Group("/api"), h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginBindingErrorsAreValidationErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, logger.Discard(), DefaultTokenConfig("secret", "refresh"), nil)

	router := gin.New()
	router.Use(request.Handler(logger.Discard()))
	RegisterRoutes(router.Group("/api"), h)

	body, _ := json.Marshal(map[string]string{"email": "a@b.co"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Error   struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "validation_error", envelope.Error.Code)
	assert.Equal(t, "is required", envelope.Error.Fields["password"])
}
