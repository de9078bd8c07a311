package enrollment

import "errors"

var (
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrForeignLearner     = errors.New("learner does not belong to your company")
)
