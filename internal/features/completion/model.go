package completion

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/features/video"
	"github.com/mo-amir99/elearning-server-go/pkg/pagination"
)

// Record marks a video as watched by a user. A pair exists at most once.
type Record struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;column:user_id;uniqueIndex:idx_completion_user_video,priority:1;index:idx_completion_user_course,priority:1" json:"userId"`
	VideoID     uuid.UUID `gorm:"type:uuid;not null;column:video_id;uniqueIndex:idx_completion_user_video,priority:2;index" json:"videoId"`
	CourseID    uuid.UUID `gorm:"type:uuid;not null;column:course_id;index:idx_completion_user_course,priority:2" json:"courseId"`
	CompletedAt time.Time `gorm:"not null;column:completed_at;index" json:"completedAt"`

	User   *user.User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Video  *video.Video   `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"-"`
	Course *course.Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the default table name.
func (Record) TableName() string { return "completion_records" }

// ListFilters narrows completion queries.
type ListFilters struct {
	UserID   uuid.UUID
	CourseID *uuid.UUID
	Since    *time.Time
}

// Entry is a completion joined with the video and course it belongs to.
type Entry struct {
	VideoID     uuid.UUID `json:"videoId"`
	VideoTitle  string    `json:"videoTitle"`
	ModuleID    uuid.UUID `json:"moduleId"`
	CourseID    uuid.UUID `json:"courseId"`
	CourseName  string    `json:"courseName"`
	CompletedAt time.Time `json:"completedAt"`
}

// List returns a user's completions, most recent first.
func List(db *gorm.DB, filters ListFilters, params pagination.Params) ([]Entry, int64, error) {
	query := db.Table("completion_records AS cr").
		Joins("JOIN videos AS v ON v.id = cr.video_id").
		Joins("JOIN courses AS c ON c.id = cr.course_id").
		Where("cr.user_id = ?", filters.UserID)
	if filters.CourseID != nil {
		query = query.Where("cr.course_id = ?", *filters.CourseID)
	}
	if filters.Since != nil {
		query = query.Where("cr.completed_at >= ?", *filters.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []Entry
	err := query.
		Select("cr.video_id, v.title AS video_title, v.module_id, cr.course_id, c.name AS course_name, cr.completed_at").
		Order("cr.completed_at DESC").
		Offset(params.Skip).
		Limit(params.Limit).
		Scan(&entries).Error
	return entries, total, err
}

// CountSince counts completions recorded at or after since, optionally for some users only.
func CountSince(db *gorm.DB, since time.Time, userIDs []uuid.UUID) (int64, error) {
	query := db.Model(&Record{}).Where("completed_at >= ?", since)
	if userIDs != nil {
		query = query.Where("user_id IN ?", userIDs)
	}
	var total int64
	err := query.Count(&total).Error
	return total, err
}
