package bootstrap

import (
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/completion"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/module"
	"github.com/mo-amir99/elearning-server-go/internal/features/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/features/video"
	"github.com/mo-amir99/elearning-server-go/pkg/config"
	"github.com/mo-amir99/elearning-server-go/pkg/database/migrations"
)

// Models lists every table in dependency order for auto-migration.
func Models() []any {
	return []any{
		&user.User{},
		&course.Course{},
		&module.Module{},
		&video.Video{},
		&enrollment.Enrollment{},
		&completion.Record{},
		&ranking.MonthlySnapshot{},
	}
}

func init() {
	migrations.Register("backfill_completion_course_ids", backfillCompletionCourseIDs)
	migrations.Register("recount_learner_course_counters", recountLearnerCounters)
}

// ApplyDatabaseMigrations runs database migrations when enabled via configuration.
func ApplyDatabaseMigrations(db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Database.RunMigrations {
		logger.Info("database migrations skipped", slog.String("env_var", "LMS_DB_RUN_MIGRATIONS=false"))
		return nil
	}

	if err := migrations.Run(db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied successfully")
	return nil
}

// backfillCompletionCourseIDs repairs records whose video moved to another course.
func backfillCompletionCourseIDs(tx *gorm.DB) error {
	return tx.Exec(`
		UPDATE completion_records AS cr
		SET course_id = m.course_id
		FROM videos AS v
		JOIN modules AS m ON m.id = v.module_id
		WHERE v.id = cr.video_id AND cr.course_id <> m.course_id`).Error
}

// recountLearnerCounters rebuilds enrolled/completed course counts from enrollments.
func recountLearnerCounters(tx *gorm.DB) error {
	return tx.Exec(`
		UPDATE users AS u
		SET enrolled_courses = COALESCE(e.enrolled, 0),
		    completed_courses = COALESCE(e.completed, 0)
		FROM (
			SELECT u2.id AS user_id,
			       COUNT(en.id) AS enrolled,
			       COUNT(en.id) FILTER (WHERE en.status = 'completed') AS completed
			FROM users AS u2
			LEFT JOIN enrollments AS en ON en.user_id = u2.id
			GROUP BY u2.id
		) AS e
		WHERE e.user_id = u.id
		  AND (u.enrolled_courses <> COALESCE(e.enrolled, 0) OR u.completed_courses <> COALESCE(e.completed, 0))`).Error
}
