package course

import "errors"

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrNameRequired    = errors.New("course name is required")
	ErrNameTaken       = errors.New("a course with this name already exists")
	ErrOrderTaken      = errors.New("course order already exists")
	ErrInvalidCategory = errors.New("invalid course category")
	ErrTooManyTags     = errors.New("a course can have at most 10 tags")
)
