package tracker

import (
	"errors"
	"net/http"

	"github.com/mo-amir99/elearning-server-go/pkg/apperrors"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrVideoNotFound  = errors.New("video not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrNotLearner     = errors.New("only workers and individual learners can track progress")
	ErrNotEnrolled    = errors.New("user is not enrolled in this course")
	ErrInactiveCourse = errors.New("course is not active")
)

// AppError maps tracker sentinels to client errors. Anything else is reported as
// a retryable 503 since tracker writes are idempotent.
func AppError(err error) *apperrors.AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserNotFound):
		return apperrors.NotFound("User not found.", err)
	case errors.Is(err, ErrVideoNotFound):
		return apperrors.NotFound("Video not found.", err)
	case errors.Is(err, ErrCourseNotFound):
		return apperrors.NotFound("Course not found.", err)
	case errors.Is(err, ErrNotEnrolled):
		return apperrors.NotFound("You are not enrolled in this course.", err)
	case errors.Is(err, ErrNotLearner):
		return apperrors.New(ErrNotLearner.Error(), http.StatusForbidden, apperrors.ErrForbidden, err)
	case errors.Is(err, ErrInactiveCourse):
		return apperrors.Conflict("This course is not active.", err)
	}
	return apperrors.Wrap(err, "Could not save your progress, please retry.", http.StatusServiceUnavailable, apperrors.ErrUnavailable)
}
