package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Learner is the slice of a user the tracker needs.
type Learner struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	Role      types.Role
	CompanyID *uuid.UUID
}

// VideoLocation places a video inside its course.
type VideoLocation struct {
	VideoID      uuid.UUID
	ModuleID     uuid.UUID
	CourseID     uuid.UUID
	CourseName   string
	CourseActive bool
}

// Enrollment is a learner's stored progress in one course.
type Enrollment struct {
	ID              uuid.UUID              `json:"id"`
	UserID          uuid.UUID              `json:"userId"`
	CourseID        uuid.UUID              `json:"courseId"`
	CompletedVideos int                    `json:"completedVideos"`
	TotalVideos     int                    `json:"totalVideos"`
	Progress        int                    `json:"progress"`
	Status          types.EnrollmentStatus `json:"status"`
	EnrolledAt      time.Time              `json:"enrolledAt"`
	CompletedAt     *time.Time             `json:"completedAt,omitempty"`
	AssignedBy      *uuid.UUID             `json:"assignedBy,omitempty"`
}

// EnrollmentKey identifies an enrollment.
type EnrollmentKey struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
}

// StatsDelta is a change to a user's denormalised counters.
type StatsDelta struct {
	Points           int
	MonthlyPoints    int
	CompletedCourses int
	EnrolledCourses  int
}

// IsZero reports whether applying d would change nothing.
func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

func (d StatsDelta) add(o StatsDelta) StatsDelta {
	return StatsDelta{
		Points:           d.Points + o.Points,
		MonthlyPoints:    d.MonthlyPoints + o.MonthlyPoints,
		CompletedCourses: d.CompletedCourses + o.CompletedCourses,
		EnrolledCourses:  d.EnrolledCourses + o.EnrolledCourses,
	}
}

// Repository is the storage the tracker runs against.
// Lookups return ErrUserNotFound, ErrVideoNotFound or ErrCourseNotFound for missing rows.
type Repository interface {
	// WithinTx runs fn against a transactional view; an error rolls everything back.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	Learner(ctx context.Context, userID uuid.UUID) (Learner, error)
	// LockLearner is Learner that also holds the user until the transaction ends,
	// so changes for one learner apply one at a time.
	LockLearner(ctx context.Context, userID uuid.UUID) (Learner, error)
	VideoLocation(ctx context.Context, videoID uuid.UUID) (VideoLocation, error)
	CourseOutline(ctx context.Context, courseID uuid.UUID) (progress.Outline, error)

	// InsertCompletion reports false when the pair was already recorded.
	InsertCompletion(ctx context.Context, userID uuid.UUID, loc VideoLocation, at time.Time) (bool, error)
	// DeleteCompletion reports false when there was nothing to delete.
	DeleteCompletion(ctx context.Context, userID, videoID uuid.UUID) (bool, error)
	CompletedVideoIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error)

	// GetEnrollment returns nil without error when the user is not enrolled.
	GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*Enrollment, error)
	SaveEnrollment(ctx context.Context, enrollment *Enrollment) error
	DeleteEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	EnrolledUserIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	EnrollmentKeys(ctx context.Context) ([]EnrollmentKey, error)

	// AdjustUserStats applies delta; counters never drop below zero.
	AdjustUserStats(ctx context.Context, userID uuid.UUID, delta StatsDelta) error
}
