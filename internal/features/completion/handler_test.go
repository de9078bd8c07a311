package completion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

type testServer struct {
	router  *gin.Engine
	repo    *tracker.MemoryRepository
	learner tracker.Learner
	videos  []uuid.UUID
}

func newTestServer(t *testing.T, role types.Role, courseActive bool) *testServer {
	t.Helper()

	repo := tracker.NewMemoryRepository()
	learner := tracker.Learner{ID: uuid.New(), FullName: "Lea Learner", Role: role}
	repo.AddUser(learner)

	videos := []uuid.UUID{uuid.New(), uuid.New()}
	repo.PutCourse("Safety 101", courseActive, progress.Outline{
		CourseID: uuid.New(),
		Modules:  []progress.ModuleOutline{{ModuleID: uuid.New(), VideoIDs: videos}},
	})

	tr := tracker.New(repo, tracker.Policy{PerVideo: 10, PerCourse: 50}, logger.Discard())
	h := NewHandler(nil, logger.Discard(), tr)

	router := gin.New()
	router.Use(request.Handler(nil))
	router.Use(func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: learner.ID, Role: role, Active: true})
		c.Next()
	})
	router.POST("/videos/:videoId/completion", h.Mark)
	router.DELETE("/videos/:videoId/completion", h.Unmark)
	router.POST("/videos/:videoId/completion/toggle", h.Toggle)

	return &testServer{router: router, repo: repo, learner: learner, videos: videos}
}

func (s *testServer) do(t *testing.T, method, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestMarkAndUnmarkOverHTTP(t *testing.T) {
	s := newTestServer(t, types.RoleIndividual, true)
	path := "/videos/" + s.videos[0].String() + "/completion"

	code, env := s.do(t, http.MethodPost, path)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Data.Changed)
	assert.True(t, env.Data.Completed)
	assert.Equal(t, 50, env.Data.Progress.Percentage)
	assert.Equal(t, 10, s.repo.Stats(s.learner.ID).Points)

	code, env = s.do(t, http.MethodPost, path)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, env.Data.Changed)
	assert.Equal(t, "Nothing to change", env.Message)

	code, env = s.do(t, http.MethodDelete, path)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, env.Data.Completed)
	assert.Equal(t, 0, env.Data.Progress.Percentage)
	assert.Equal(t, 0, s.repo.Stats(s.learner.ID).Points)
}

func TestToggleOverHTTP(t *testing.T) {
	s := newTestServer(t, types.RoleWorker, true)
	path := "/videos/" + s.videos[1].String() + "/completion/toggle"

	_, env := s.do(t, http.MethodPost, path)
	assert.True(t, env.Data.Completed)
	_, env = s.do(t, http.MethodPost, path)
	assert.False(t, env.Data.Completed)
}

func TestCompletionErrors(t *testing.T) {
	s := newTestServer(t, types.RoleWorker, true)

	code, env := s.do(t, http.MethodPost, "/videos/not-a-uuid/completion")
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)

	code, env = s.do(t, http.MethodPost, "/videos/"+uuid.NewString()+"/completion")
	assert.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)
	assert.False(t, env.Error.Retryable)

	admin := newTestServer(t, types.RoleAdmin, true)
	code, _ = admin.do(t, http.MethodPost, "/videos/"+admin.videos[0].String()+"/completion")
	assert.Equal(t, http.StatusForbidden, code)

	inactive := newTestServer(t, types.RoleWorker, false)
	code, _ = inactive.do(t, http.MethodPost, "/videos/"+inactive.videos[0].String()+"/completion")
	assert.Equal(t, http.StatusConflict, code)
}
