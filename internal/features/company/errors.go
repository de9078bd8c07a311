package company

import "errors"

var (
	ErrCompanyNotFound  = errors.New("company not found")
	ErrCompanyRequired  = errors.New("companyId is required for admins")
	ErrNotCompanyMember = errors.New("only company accounts and admins can view company reports")
)
