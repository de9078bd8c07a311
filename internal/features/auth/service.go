package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/utils/jwt"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	Role        types.Role
	CompanyName *string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	User         *user.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
}

type TokenConfig struct {
	JWTSecret           string
	JWTRefreshSecret    string
	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	PasswordResetExpiry time.Duration
}

// DefaultTokenConfig uses the expiries the clients are built around.
func DefaultTokenConfig(secret, refreshSecret string) TokenConfig {
	return TokenConfig{
		JWTSecret:           secret,
		JWTRefreshSecret:    refreshSecret,
		AccessTokenExpiry:   15 * time.Minute,
		RefreshTokenExpiry:  7 * 24 * time.Hour,
		PasswordResetExpiry: time.Hour,
	}
}

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Register creates an individual learner, or a company when a company name is given.
func Register(db *gorm.DB, input RegisterInput, cfg TokenConfig) (*AuthResponse, error) {
	if strings.TrimSpace(input.FullName) == "" || input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}
	if !emailRegex.MatchString(strings.TrimSpace(input.Email)) {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < 8 {
		return nil, ErrWeakPassword
	}

	role := input.Role
	if role == "" {
		role = types.RoleIndividual
	}
	if role != types.RoleIndividual && role != types.RoleCompany {
		return nil, ErrRoleNotAllowed
	}

	newUser, err := user.Create(db, user.CreateInput{
		FullName:    input.FullName,
		Email:       input.Email,
		Password:    input.Password,
		Role:        role,
		CompanyName: input.CompanyName,
	})
	if err != nil {
		return nil, err
	}

	return issue(db, newUser, cfg)
}

// Login authenticates a user and returns tokens.
func Login(db *gorm.DB, input LoginInput, cfg TokenConfig) (*AuthResponse, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrMissingFields
	}

	usr, err := user.GetByEmail(db, input.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !usr.ComparePassword(input.Password) {
		return nil, ErrInvalidCredentials
	}

	if usr.Role != types.RoleAdmin {
		if !usr.Active {
			return nil, ErrInactiveAccount
		}
		if usr.Role == types.RoleWorker && usr.CompanyID != nil {
			company, err := user.Get(db, *usr.CompanyID)
			if err != nil || !company.Active {
				return nil, ErrInactiveCompany
			}
		}
	}

	resp, err := issue(db, usr, cfg)
	if err != nil {
		return nil, err
	}
	if err := user.TouchLogin(db, usr.ID, time.Now()); err != nil {
		return nil, err
	}
	return resp, nil
}

func issue(db *gorm.DB, usr user.User, cfg TokenConfig) (*AuthResponse, error) {
	pair, err := newPair(usr, cfg)
	if err != nil {
		return nil, err
	}

	if err := user.SetRefreshToken(db, usr.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         &usr,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func newPair(usr user.User, cfg TokenConfig) (*jwt.TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(usr.ID, usr.Role, cfg.JWTSecret, cfg.AccessTokenExpiry)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(usr.ID, cfg.JWTRefreshSecret, cfg.RefreshTokenExpiry)
	if err != nil {
		return nil, err
	}

	return &jwt.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout clears the refresh token for a user. Expired access tokens are still accepted.
func Logout(db *gorm.DB, accessToken string, cfg TokenConfig) error {
	claims, err := jwt.VerifyToken(accessToken, cfg.JWTSecret)
	if err != nil {
		if !errors.Is(err, jwt.ErrExpiredToken) {
			return ErrInvalidToken
		}
		claims, err = jwt.DecodeWithoutVerify(accessToken)
		if err != nil {
			return ErrInvalidToken
		}
	}

	if _, err := user.Get(db, claims.UserID); err != nil {
		return err
	}

	return user.SetRefreshToken(db, claims.UserID, nil)
}

// PasswordResetInfo contains data for sending password reset emails.
type PasswordResetInfo struct {
	Token    string
	Email    string
	FullName string
}

// RequestPasswordReset generates a reset token. Unknown emails return nil without an error.
func RequestPasswordReset(db *gorm.DB, email string, cfg TokenConfig) (*PasswordResetInfo, error) {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return nil, ErrInvalidEmail
	}

	usr, err := user.GetByEmail(db, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	resetToken, err := jwt.GeneratePurposeToken(usr.ID, jwt.PurposePasswordReset, cfg.JWTSecret, cfg.PasswordResetExpiry)
	if err != nil {
		return nil, err
	}

	return &PasswordResetInfo{
		Token:    resetToken,
		Email:    usr.Email,
		FullName: usr.FullName,
	}, nil
}

// ResetPassword updates a user's password using a reset token. Every session is revoked.
func ResetPassword(db *gorm.DB, token, newPassword string, cfg TokenConfig) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	claims, err := jwt.VerifyPurposeToken(strings.TrimSpace(token), jwt.PurposePasswordReset, cfg.JWTSecret)
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return ErrResetTokenExpired
	case errors.Is(err, jwt.ErrWrongPurpose):
		return ErrInvalidTokenType
	case err != nil:
		return ErrInvalidToken
	}

	_, err = user.Update(db, claims.UserID, user.UpdateInput{Password: &newPassword})
	return err
}

// RefreshAccessToken rotates the token pair. The presented refresh token must be the stored one.
func RefreshAccessToken(db *gorm.DB, refreshToken string, cfg TokenConfig) (*jwt.TokenPair, error) {
	claims, err := jwt.VerifyPurposeToken(refreshToken, jwt.PurposeRefresh, cfg.JWTRefreshSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	usr, err := user.Get(db, claims.UserID)
	if err != nil {
		return nil, err
	}

	if usr.RefreshToken == nil || *usr.RefreshToken != refreshToken {
		return nil, ErrInvalidToken
	}
	if !usr.Active && usr.Role != types.RoleAdmin {
		return nil, ErrInactiveAccount
	}

	pair, err := newPair(usr, cfg)
	if err != nil {
		return nil, err
	}
	if err := user.SetRefreshToken(db, usr.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return pair, nil
}

// ExtractToken extracts the bearer token from an Authorization header.
func ExtractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}
