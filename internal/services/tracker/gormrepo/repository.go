// Package gormrepo stores tracker state in Postgres through GORM.
package gormrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/completion"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
)

// Repository implements tracker.Repository on the relational model.
type Repository struct {
	db *gorm.DB
}

var _ tracker.Repository = (*Repository)(nil)

// New wraps db.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// WithinTx runs fn inside a database transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(repo tracker.Repository) error) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Learner(ctx context.Context, userID uuid.UUID) (tracker.Learner, error) {
	return r.learner(r.conn(ctx), userID)
}

// LockLearner takes a row lock on the user. Outside WithinTx the lock is released immediately.
func (r *Repository) LockLearner(ctx context.Context, userID uuid.UUID) (tracker.Learner, error) {
	return r.learner(r.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *Repository) learner(db *gorm.DB, userID uuid.UUID) (tracker.Learner, error) {
	var u user.User
	err := db.
		Select("id", "full_name", "email", "role", "company_id").
		First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tracker.Learner{}, tracker.ErrUserNotFound
		}
		return tracker.Learner{}, err
	}
	return tracker.Learner{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}, nil
}

func (r *Repository) VideoLocation(ctx context.Context, videoID uuid.UUID) (tracker.VideoLocation, error) {
	var rows []struct {
		VideoID      uuid.UUID
		ModuleID     uuid.UUID
		CourseID     uuid.UUID
		CourseName   string
		CourseActive bool
	}
	err := r.conn(ctx).Table("videos AS v").
		Select("v.id AS video_id, m.id AS module_id, c.id AS course_id, c.name AS course_name, c.is_active AS course_active").
		Joins("JOIN modules AS m ON m.id = v.module_id").
		Joins("JOIN courses AS c ON c.id = m.course_id").
		Where("v.id = ?", videoID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return tracker.VideoLocation{}, err
	}
	if len(rows) == 0 {
		return tracker.VideoLocation{}, tracker.ErrVideoNotFound
	}
	row := rows[0]
	return tracker.VideoLocation{
		VideoID:      row.VideoID,
		ModuleID:     row.ModuleID,
		CourseID:     row.CourseID,
		CourseName:   row.CourseName,
		CourseActive: row.CourseActive,
	}, nil
}

func (r *Repository) CourseOutline(ctx context.Context, courseID uuid.UUID) (progress.Outline, error) {
	outline, err := course.Outline(r.conn(ctx), courseID)
	if errors.Is(err, course.ErrCourseNotFound) {
		return progress.Outline{}, tracker.ErrCourseNotFound
	}
	return outline, err
}

func (r *Repository) InsertCompletion(ctx context.Context, userID uuid.UUID, loc tracker.VideoLocation, at time.Time) (bool, error) {
	record := completion.Record{
		UserID:      userID,
		VideoID:     loc.VideoID,
		CourseID:    loc.CourseID,
		CompletedAt: at,
	}
	result := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoNothing: true,
		}).
		Create(&record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) DeleteCompletion(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	result := r.conn(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Delete(&completion.Record{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) CompletedVideoIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&completion.Record{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("completed_at ASC").
		Pluck("video_id", &ids).Error
	return ids, err
}

func (r *Repository) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*tracker.Enrollment, error) {
	enr, err := enrollment.Get(r.conn(ctx), userID, courseID)
	if err != nil {
		if errors.Is(err, enrollment.ErrEnrollmentNotFound) {
			return nil, nil
		}
		return nil, err
	}
	out := toTracker(enr)
	return &out, nil
}

// SaveEnrollment upserts on (user_id, course_id) and writes the stored id back.
func (r *Repository) SaveEnrollment(ctx context.Context, e *tracker.Enrollment) error {
	row := fromTracker(*e)
	err := r.conn(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"completed_videos", "total_videos", "progress", "status",
				"completed_at", "assigned_by", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return err
	}
	if row.ID != uuid.Nil {
		e.ID = row.ID
		return nil
	}
	if e.ID == uuid.Nil {
		stored, err := enrollment.Get(r.conn(ctx), e.UserID, e.CourseID)
		if err != nil {
			return err
		}
		e.ID = stored.ID
	}
	return nil
}

func (r *Repository) DeleteEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	result := r.conn(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&enrollment.Enrollment{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) EnrolledUserIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&enrollment.Enrollment{}).
		Where("course_id = ?", courseID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *Repository) EnrollmentKeys(ctx context.Context) ([]tracker.EnrollmentKey, error) {
	var keys []tracker.EnrollmentKey
	err := r.conn(ctx).Model(&enrollment.Enrollment{}).
		Select("user_id, course_id").
		Order("course_id, user_id").
		Scan(&keys).Error
	return keys, err
}

// AdjustUserStats applies delta in a single UPDATE, clamping every counter at zero.
func (r *Repository) AdjustUserStats(ctx context.Context, userID uuid.UUID, delta tracker.StatsDelta) error {
	if delta.IsZero() {
		return nil
	}
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}
	if delta.Points != 0 {
		updates["points"] = gorm.Expr("GREATEST(points + ?, 0)", delta.Points)
	}
	if delta.MonthlyPoints != 0 {
		updates["monthly_points"] = gorm.Expr("GREATEST(monthly_points + ?, 0)", delta.MonthlyPoints)
	}
	if delta.CompletedCourses != 0 {
		updates["completed_courses"] = gorm.Expr("GREATEST(completed_courses + ?, 0)", delta.CompletedCourses)
	}
	if delta.EnrolledCourses != 0 {
		updates["enrolled_courses"] = gorm.Expr("GREATEST(enrolled_courses + ?, 0)", delta.EnrolledCourses)
	}

	result := r.conn(ctx).Model(&user.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tracker.ErrUserNotFound
	}
	return nil
}

func toTracker(e enrollment.Enrollment) tracker.Enrollment {
	return tracker.Enrollment{
		ID:              e.ID,
		UserID:          e.UserID,
		CourseID:        e.CourseID,
		CompletedVideos: e.CompletedVideos,
		TotalVideos:     e.TotalVideos,
		Progress:        e.Progress,
		Status:          e.Status,
		EnrolledAt:      e.EnrolledAt,
		CompletedAt:     e.CompletedAt,
		AssignedBy:      e.AssignedBy,
	}
}

func fromTracker(e tracker.Enrollment) enrollment.Enrollment {
	row := enrollment.Enrollment{
		UserID:          e.UserID,
		CourseID:        e.CourseID,
		CompletedVideos: e.CompletedVideos,
		TotalVideos:     e.TotalVideos,
		Progress:        e.Progress,
		Status:          e.Status,
		EnrolledAt:      e.EnrolledAt,
		CompletedAt:     e.CompletedAt,
		AssignedBy:      e.AssignedBy,
	}
	row.ID = e.ID
	return row
}
