package video

import "errors"

var (
	ErrVideoNotFound     = errors.New("video not found")
	ErrTitleRequired     = errors.New("video title is required")
	ErrTitleLength       = errors.New("video title must be between 2 and 200 characters")
	ErrURLRequired       = errors.New("video url is required")
	ErrDurationInvalid   = errors.New("video duration cannot be negative")
	ErrOrderInvalid      = errors.New("video order cannot be negative")
	ErrDuplicateInModule = errors.New("this video is already part of the module")
)
