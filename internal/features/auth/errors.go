package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters long")
	ErrRoleNotAllowed     = errors.New("only individual and company accounts can sign up")
	ErrInactiveAccount    = errors.New("your account is inactive. Please contact support")
	ErrInactiveCompany    = errors.New("your company account is inactive. Please contact your company")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrResetTokenExpired  = errors.New("reset link expired")
)
