package enrollment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    tracker.Result `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type testServer struct {
	router   *gin.Engine
	repo     *tracker.MemoryRepository
	tracker  *tracker.Tracker
	userID   uuid.UUID
	courseID uuid.UUID
}

func newTestServer(t *testing.T, role types.Role) *testServer {
	t.Helper()

	repo := tracker.NewMemoryRepository()
	userID := uuid.New()
	repo.AddUser(tracker.Learner{ID: userID, FullName: "Sam Signed-In", Role: role})

	courseID := uuid.New()
	repo.PutCourse("Forklift Basics", true, progress.Outline{
		CourseID: courseID,
		Modules:  []progress.ModuleOutline{{ModuleID: uuid.New(), VideoIDs: []uuid.UUID{uuid.New()}}},
	})

	tr := tracker.New(repo, tracker.Policy{PerVideo: 10, PerCourse: 50}, logger.Discard())
	h := NewHandler(nil, logger.Discard(), tr)

	router := gin.New()
	router.Use(request.Handler(nil))
	router.Use(func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: userID, Role: role, Active: true})
		c.Next()
	})
	router.POST("/courses/:courseId/enrollment", h.Enroll)
	router.DELETE("/courses/:courseId/enrollment", h.Unenroll)
	router.GET("/enrollments/me", h.Mine)

	return &testServer{router: router, repo: repo, tracker: tr, userID: userID, courseID: courseID}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestEnrollRequiresLearnerRole(t *testing.T) {
	s := newTestServer(t, types.RoleCompany)

	code, env := s.do(t, http.MethodPost, "/courses/"+s.courseID.String()+"/enrollment", nil)

	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)
	assert.Equal(t, 0, s.repo.Stats(s.userID).EnrolledCourses)
}

func TestEnrollRejectsMalformedInput(t *testing.T) {
	s := newTestServer(t, types.RoleIndividual)

	code, _ := s.do(t, http.MethodPost, "/courses/not-a-uuid/enrollment", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodPost, "/courses/"+s.courseID.String()+"/enrollment", strings.NewReader(`{"userId":"nobody"}`))
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
}

func TestUnenrollWithoutEnrollment(t *testing.T) {
	s := newTestServer(t, types.RoleWorker)

	code, env := s.do(t, http.MethodDelete, "/courses/"+s.courseID.String()+"/enrollment", nil)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "You are not enrolled in this course.", env.Message)
}

func TestUnenrollDropsCounters(t *testing.T) {
	s := newTestServer(t, types.RoleIndividual)

	_, err := s.tracker.Enroll(context.Background(), s.userID, s.courseID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.repo.Stats(s.userID).EnrolledCourses)

	code, env := s.do(t, http.MethodDelete, "/courses/"+s.courseID.String()+"/enrollment", nil)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, tracker.ActionUnenrolled, env.Data.Action)
	assert.True(t, env.Data.Changed)
	assert.Equal(t, 0, s.repo.Stats(s.userID).EnrolledCourses)

	code, _ = s.do(t, http.MethodDelete, "/courses/"+s.courseID.String()+"/enrollment", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnenrollRejectsMalformedUserQuery(t *testing.T) {
	s := newTestServer(t, types.RoleAdmin)

	code, _ := s.do(t, http.MethodDelete, "/courses/"+s.courseID.String()+"/enrollment?userId=abc", nil)

	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMineRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t, types.RoleIndividual)

	code, env := s.do(t, http.MethodGet, "/enrollments/me?status=paused", nil)

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid status filter.", env.Message)
}
