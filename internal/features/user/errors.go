package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidPassword    = errors.New("password must be at least 8 characters")
	ErrInvalidRole        = errors.New("invalid role")
	ErrFullNameRequired   = errors.New("full name is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrCompanyRequired    = errors.New("workers must belong to a company")
	ErrCompanyNotFound    = errors.New("company not found")
	ErrCompanyNameMissing = errors.New("company accounts need a company name")
	ErrUnauthorized       = errors.New("unauthorized to perform this action")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is deactivated")
)
