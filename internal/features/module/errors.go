package module

import "errors"

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrNameRequired   = errors.New("module name is required")
	ErrNameLength     = errors.New("module name must be between 2 and 120 characters")
	ErrOrderInvalid   = errors.New("module order cannot be negative")
)
