package company

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

func worker(name string, active bool) user.User {
	u := user.User{FullName: name, Email: name + "@example.com", Role: types.RoleWorker, Active: active}
	u.ID = uuid.New()
	return u
}

func TestAssembleAggregatesPerWorker(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	v1, v2, v3, v4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	goCourse := core.Outline{CourseID: uuid.New(), Modules: []core.ModuleOutline{
		{ModuleID: uuid.New(), VideoIDs: []uuid.UUID{v1, v2}},
		{ModuleID: uuid.New(), VideoIDs: []uuid.UUID{v3, v4}},
	}}
	empty := core.Outline{CourseID: uuid.New()}

	ana, ben := worker("ana", true), worker("ben", false)
	enrollments := []enrollment.Enrollment{
		{UserID: ana.ID, CourseID: goCourse.CourseID, EnrolledAt: now, Course: &course.Course{Name: "Go"}},
		{UserID: ben.ID, CourseID: goCourse.CourseID, EnrolledAt: now, Course: &course.Course{Name: "Go"}},
		{UserID: ben.ID, CourseID: empty.CourseID, EnrolledAt: now},
	}
	completed := map[uuid.UUID][]uuid.UUID{
		ana.ID: {v1, v2, v3, v4},
		ben.ID: {v1},
	}

	report := assemble(uuid.New(), "Acme", now, []user.User{ana, ben}, enrollments,
		[]core.Outline{goCourse, empty}, completed, 5)

	require.Len(t, report.Workers, 2)
	assert.Equal(t, 1, report.ActiveWorkers)
	assert.Equal(t, int64(5), report.RecentlyDone)

	assert.Equal(t, 100, report.Workers[0].Summary.Percentage)
	assert.Equal(t, 1, report.Workers[0].Summary.CompletedCourses)
	assert.Equal(t, "Go", report.Workers[0].Courses[0].CourseName)

	require.Len(t, report.Workers[1].Courses, 2)
	assert.Equal(t, 25, report.Workers[1].Courses[0].Percentage)
	assert.Equal(t, 0, report.Workers[1].Courses[1].Percentage)
	assert.Equal(t, types.EnrollmentStatusEnrolled, report.Workers[1].Courses[1].Status)

	assert.Equal(t, 1, report.Statuses[types.EnrollmentStatusCompleted])
	assert.Equal(t, 1, report.Statuses[types.EnrollmentStatusInProgress])
	assert.Equal(t, 1, report.Statuses[types.EnrollmentStatusEnrolled])
	assert.Equal(t, 5, report.Summary.CompletedVideos)
	assert.Equal(t, 8, report.Summary.TotalVideos)
	assert.Equal(t, 63, report.Summary.Percentage)
}

func TestSheetsOrderWorkersByProgress(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	report := Report{
		GeneratedAt: now,
		Workers: []WorkerProgress{
			{FullName: "slow", Summary: core.Summary{Percentage: 10}},
			{FullName: "fast", Summary: core.Summary{Percentage: 90}, Courses: []WorkerCourse{
				{CourseName: "Go", Status: types.EnrollmentStatusCompleted, EnrolledAt: now, CompletedAt: &now},
			}},
		},
	}

	sheets := report.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, "fast", sheets[0].Rows[0][0])
	assert.Equal(t, "slow", sheets[0].Rows[1][0])
	require.Len(t, sheets[1].Rows, 1)
	assert.Equal(t, "2026-03-15", sheets[1].Rows[0][8])
	assert.Equal(t, "progress-report-2026-03-15.xlsx", report.Filename())
	assert.Equal(t, "slow", report.Workers[0].FullName)
}
