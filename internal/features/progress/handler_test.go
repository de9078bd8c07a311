package progress

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func outline(courseID uuid.UUID, videos ...uuid.UUID) core.Outline {
	return core.Outline{
		CourseID: courseID,
		Modules:  []core.ModuleOutline{{ModuleID: uuid.New(), VideoIDs: videos}},
	}
}

func TestAssembleOverview(t *testing.T) {
	learner := user.User{Points: 80, MonthlyPoints: 30, CompletedCourses: 1}
	learner.ID = uuid.New()

	done := []uuid.UUID{uuid.New(), uuid.New()}
	halfway := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	finishedID, halfwayID, emptyID := uuid.New(), uuid.New(), uuid.New()
	completedAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	enrollments := []enrollment.Enrollment{
		{CourseID: finishedID, CompletedAt: &completedAt, Course: &course.Course{Name: "Fire Safety"}},
		{CourseID: halfwayID, Course: &course.Course{Name: "First Aid"}},
		{CourseID: emptyID},
	}
	outlines := []core.Outline{
		outline(finishedID, done...),
		outline(halfwayID, halfway...),
		outline(emptyID),
	}
	// The stray id belongs to no enrolled course.
	completed := append([]uuid.UUID{halfway[0], halfway[1], uuid.New()}, done...)

	view := assembleOverview(learner, enrollments, outlines, completed)

	assert.Equal(t, learner.ID, view.UserID)
	assert.Equal(t, 80, view.Points)
	assert.Equal(t, 30, view.MonthlyPoints)
	assert.Equal(t, 1, view.CompletedCourses)
	require.Len(t, view.Courses, 3)

	assert.Equal(t, "Fire Safety", view.Courses[0].CourseName)
	assert.Equal(t, types.EnrollmentStatusCompleted, view.Courses[0].Status)
	assert.Equal(t, 100, view.Courses[0].Percentage)
	assert.Equal(t, &completedAt, view.Courses[0].CompletedAt)

	assert.Equal(t, types.EnrollmentStatusInProgress, view.Courses[1].Status)
	assert.Equal(t, 2, view.Courses[1].CompletedVideos)
	assert.Equal(t, 50, view.Courses[1].Percentage)

	assert.Empty(t, view.Courses[2].CourseName)
	assert.Equal(t, types.EnrollmentStatusEnrolled, view.Courses[2].Status)
	assert.Zero(t, view.Courses[2].TotalVideos)

	assert.Equal(t, core.Summary{
		Courses:          3,
		StartedCourses:   2,
		CompletedCourses: 1,
		CompletedVideos:  4,
		TotalVideos:      6,
		Percentage:       67,
	}, view.Summary)
}

func TestAssembleOverviewMissingOutline(t *testing.T) {
	courseID := uuid.New()
	view := assembleOverview(user.User{}, []enrollment.Enrollment{{CourseID: courseID}}, nil, nil)

	require.Len(t, view.Courses, 1)
	assert.Equal(t, courseID, view.Courses[0].CourseID)
	assert.Equal(t, types.EnrollmentStatusEnrolled, view.Courses[0].Status)
	assert.Zero(t, view.Summary.Courses)
}

func TestForUserRejectsMalformedID(t *testing.T) {
	h := NewHandler(nil, logger.Discard(), nil)

	router := gin.New()
	router.Use(request.Handler(nil))
	router.Use(func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: uuid.New(), Role: types.RoleAdmin, Active: true})
		c.Next()
	})
	router.GET("/progress/users/:userId", h.ForUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/progress/users/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
