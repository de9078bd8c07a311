package enrollment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Enrollment is a learner's registration in a course together with the cached progress.
type Enrollment struct {
	types.BaseModel

	UserID          uuid.UUID              `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_enrollment_user_course,priority:1" json:"userId"`
	CourseID        uuid.UUID              `gorm:"type:uuid;not null;column:course_id;uniqueIndex:idx_enrollment_user_course,priority:2;index" json:"courseId"`
	CompletedVideos int                    `gorm:"not null;default:0;column:completed_videos" json:"completedVideos"`
	TotalVideos     int                    `gorm:"not null;default:0;column:total_videos" json:"totalVideos"`
	Progress        int                    `gorm:"not null;default:0" json:"progress"`
	Status          types.EnrollmentStatus `gorm:"type:varchar(20);not null;default:'enrolled';index" json:"status"`
	EnrolledAt      time.Time              `gorm:"not null;column:enrolled_at" json:"enrolledAt"`
	CompletedAt     *time.Time             `gorm:"column:completed_at" json:"completedAt,omitempty"`
	AssignedBy      *uuid.UUID             `gorm:"type:uuid;column:assigned_by" json:"assignedBy,omitempty"`

	User   *user.User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Course *course.Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName overrides the default table name.
func (Enrollment) TableName() string { return "enrollments" }

// ListFilters narrows enrollment queries.
type ListFilters struct {
	UserID   *uuid.UUID
	CourseID *uuid.UUID
	UserIDs  []uuid.UUID
	Status   types.EnrollmentStatus
}

// List returns enrollments with their course, newest first.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]Enrollment, int64, error) {
	query := db.Model(&Enrollment{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CourseID != nil {
		query = query.Where("course_id = ?", *filters.CourseID)
	}
	if filters.UserIDs != nil {
		query = query.Where("user_id IN ?", filters.UserIDs)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var enrollments []Enrollment
	err := query.
		Preload("Course").
		Order("enrolled_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Find(&enrollments).Error
	return enrollments, total, err
}

// ForUser returns every enrollment of a user with the course preloaded.
func ForUser(db *gorm.DB, userID uuid.UUID) ([]Enrollment, error) {
	var enrollments []Enrollment
	err := db.Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

// ForUsers returns the enrollments of several users with their courses.
func ForUsers(db *gorm.DB, userIDs []uuid.UUID) ([]Enrollment, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var enrollments []Enrollment
	err := db.Preload("Course").
		Where("user_id IN ?", userIDs).
		Order("enrolled_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

// Get retrieves the enrollment of userID in courseID.
func Get(db *gorm.DB, userID, courseID uuid.UUID) (Enrollment, error) {
	var enr Enrollment
	if err := db.First(&enr, "user_id = ? AND course_id = ?", userID, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return enr, ErrEnrollmentNotFound
		}
		return enr, err
	}
	return enr, nil
}

// StatusCounts tallies enrollments per status, optionally limited to some users.
func StatusCounts(db *gorm.DB, userIDs []uuid.UUID) (map[types.EnrollmentStatus]int64, error) {
	query := db.Model(&Enrollment{}).Select("status, COUNT(*) AS total").Group("status")
	if userIDs != nil {
		query = query.Where("user_id IN ?", userIDs)
	}

	var rows []struct {
		Status types.EnrollmentStatus
		Total  int64
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[types.EnrollmentStatus]int64{
		types.EnrollmentStatusEnrolled:   0,
		types.EnrollmentStatusInProgress: 0,
		types.EnrollmentStatusCompleted:  0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
