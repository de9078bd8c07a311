package company

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	core "github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/completion"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/export"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// WorkerCourse is one enrollment of a worker with live progress.
type WorkerCourse struct {
	core.CourseProgress
	CourseName  string                 `json:"courseName"`
	Status      types.EnrollmentStatus `json:"status"`
	EnrolledAt  time.Time              `json:"enrolledAt"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// WorkerProgress summarises one worker.
type WorkerProgress struct {
	UserID           uuid.UUID      `json:"userId"`
	FullName         string         `json:"fullName"`
	Email            string         `json:"email"`
	Active           bool           `json:"isActive"`
	Points           int            `json:"points"`
	MonthlyPoints    int            `json:"monthlyPoints"`
	CompletedCourses int            `json:"completedCourses"`
	Summary          core.Summary   `json:"summary"`
	Courses          []WorkerCourse `json:"courses"`
}

// Report is the progress of every worker of a company.
type Report struct {
	CompanyID     uuid.UUID                      `json:"companyId"`
	CompanyName   string                         `json:"companyName"`
	GeneratedAt   time.Time                      `json:"generatedAt"`
	Workers       []WorkerProgress               `json:"workers"`
	ActiveWorkers int                            `json:"activeWorkers"`
	Summary       core.Summary                   `json:"summary"`
	Statuses      map[types.EnrollmentStatus]int `json:"statuses"`
	RecentlyDone  int64                          `json:"completionsLast30Days"`
}

// BuildReport loads the company's workers, their enrollments and completion records
// and aggregates them in memory.
func BuildReport(db *gorm.DB, companyID uuid.UUID, now time.Time) (Report, error) {
	owner, err := user.Get(db, companyID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return Report{}, ErrCompanyNotFound
		}
		return Report{}, err
	}
	if owner.Role != types.RoleCompany {
		return Report{}, ErrCompanyNotFound
	}

	workers, err := user.Workers(db, companyID)
	if err != nil {
		return Report{}, fmt.Errorf("load workers: %w", err)
	}

	workerIDs := make([]uuid.UUID, 0, len(workers))
	for _, w := range workers {
		workerIDs = append(workerIDs, w.ID)
	}

	enrollments, err := enrollment.ForUsers(db, workerIDs)
	if err != nil {
		return Report{}, fmt.Errorf("load enrollments: %w", err)
	}

	courseIDs := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]struct{})
	for _, e := range enrollments {
		if _, ok := seen[e.CourseID]; !ok {
			seen[e.CourseID] = struct{}{}
			courseIDs = append(courseIDs, e.CourseID)
		}
	}

	outlines, err := course.Outlines(db, courseIDs)
	if err != nil {
		return Report{}, fmt.Errorf("load outlines: %w", err)
	}

	var done []struct {
		UserID  uuid.UUID
		VideoID uuid.UUID
	}
	if len(workerIDs) > 0 && len(courseIDs) > 0 {
		if err := db.Model(&completion.Record{}).
			Select("user_id, video_id").
			Where("user_id IN ? AND course_id IN ?", workerIDs, courseIDs).
			Scan(&done).Error; err != nil {
			return Report{}, fmt.Errorf("load completions: %w", err)
		}
	}

	recent := int64(0)
	if len(workerIDs) > 0 {
		recent, err = completion.CountSince(db, now.AddDate(0, 0, -30), workerIDs)
		if err != nil {
			return Report{}, fmt.Errorf("count recent completions: %w", err)
		}
	}

	completed := make(map[uuid.UUID][]uuid.UUID, len(workers))
	for _, d := range done {
		completed[d.UserID] = append(completed[d.UserID], d.VideoID)
	}

	name := owner.FullName
	if owner.CompanyName != nil && *owner.CompanyName != "" {
		name = *owner.CompanyName
	}

	return assemble(owner.ID, name, now, workers, enrollments, outlines, completed, recent), nil
}

func assemble(
	companyID uuid.UUID,
	companyName string,
	now time.Time,
	workers []user.User,
	enrollments []enrollment.Enrollment,
	outlines []core.Outline,
	completed map[uuid.UUID][]uuid.UUID,
	recent int64,
) Report {
	byCourse := make(map[uuid.UUID]core.Outline, len(outlines))
	for _, o := range outlines {
		byCourse[o.CourseID] = o
	}

	byUser := make(map[uuid.UUID][]enrollment.Enrollment, len(workers))
	for _, e := range enrollments {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}

	report := Report{
		CompanyID:    companyID,
		CompanyName:  companyName,
		GeneratedAt:  now,
		Workers:      make([]WorkerProgress, 0, len(workers)),
		Statuses:     make(map[types.EnrollmentStatus]int),
		RecentlyDone: recent,
	}

	var all []core.CourseProgress
	for _, w := range workers {
		set := core.NewSet(completed[w.ID]...)

		row := WorkerProgress{
			UserID:           w.ID,
			FullName:         w.FullName,
			Email:            w.Email,
			Active:           w.Active,
			Points:           w.Points,
			MonthlyPoints:    w.MonthlyPoints,
			CompletedCourses: w.CompletedCourses,
			Courses:          make([]WorkerCourse, 0, len(byUser[w.ID])),
		}

		progresses := make([]core.CourseProgress, 0, len(byUser[w.ID]))
		for _, e := range byUser[w.ID] {
			outline, ok := byCourse[e.CourseID]
			if !ok {
				outline = core.Outline{CourseID: e.CourseID}
			}
			p := core.ForCourse(outline, set)
			status := types.EnrollmentStatusFor(p.CompletedVideos, p.TotalVideos)

			wc := WorkerCourse{
				CourseProgress: p,
				Status:         status,
				EnrolledAt:     e.EnrolledAt,
				CompletedAt:    e.CompletedAt,
			}
			if e.Course != nil {
				wc.CourseName = e.Course.Name
			}

			row.Courses = append(row.Courses, wc)
			progresses = append(progresses, p)
			report.Statuses[status]++
		}

		row.Summary = core.Summarize(progresses)
		all = append(all, progresses...)
		if w.Active {
			report.ActiveWorkers++
		}
		report.Workers = append(report.Workers, row)
	}

	report.Summary = core.Summarize(all)
	return report
}

// Sheets renders the report as two workbook tabs: one row per worker and one row per enrollment.
func (r Report) Sheets() []export.Sheet {
	workers := export.Sheet{
		Title: "Workers",
		Header: []string{
			"Name", "Email", "Active", "Points", "Monthly Points",
			"Enrolled Courses", "Completed Courses", "Videos Done", "Videos Total", "Progress %",
		},
	}
	courses := export.Sheet{
		Title: "Courses",
		Header: []string{
			"Name", "Email", "Course", "Status", "Videos Done", "Videos Total", "Progress %",
			"Enrolled At", "Completed At",
		},
	}

	rows := make([]WorkerProgress, len(r.Workers))
	copy(rows, r.Workers)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Summary.Percentage > rows[j].Summary.Percentage
	})

	for _, w := range rows {
		workers.Rows = append(workers.Rows, []any{
			w.FullName, w.Email, yesNo(w.Active), w.Points, w.MonthlyPoints,
			w.Summary.Courses, w.Summary.CompletedCourses,
			w.Summary.CompletedVideos, w.Summary.TotalVideos, w.Summary.Percentage,
		})

		for _, c := range w.Courses {
			completedAt := ""
			if c.CompletedAt != nil {
				completedAt = c.CompletedAt.Format(time.DateOnly)
			}
			courses.Rows = append(courses.Rows, []any{
				w.FullName, w.Email, c.CourseName, string(c.Status),
				c.CompletedVideos, c.TotalVideos, c.Percentage,
				c.EnrolledAt.Format(time.DateOnly), completedAt,
			})
		}
	}

	return []export.Sheet{workers, courses}
}

// Filename is the download name of the report workbook.
func (r Report) Filename() string {
	return fmt.Sprintf("progress-report-%s.xlsx", r.GeneratedAt.Format("2006-01-02"))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
