package ranking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/mo-amir99/elearning-server-go/internal/core/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/cache"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubSource struct {
	mu         sync.Mutex
	calls      int
	candidates []core.Candidate
	scopes     []Scope
}

func (s *stubSource) Candidates(_ context.Context, scope Scope) ([]core.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.scopes = append(s.scopes, scope)

	if scope.CompanyID == nil {
		return s.candidates, nil
	}
	var out []core.Candidate
	for _, c := range s.candidates {
		if c.CompanyID != nil && *c.CompanyID == *scope.CompanyID {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	reasons []string
}

func (n *recordingNotifier) EmitLeaderboardChanged(reason string) {
	n.reasons = append(n.reasons, reason)
}

type fixture struct {
	source  *stubSource
	service *Service
	handler *Handler
	company uuid.UUID
	users   []uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	company := uuid.New()
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	source := &stubSource{candidates: []core.Candidate{
		{UserID: users[0], FullName: "User One", Role: types.RoleWorker, CompanyID: &company, Points: 120, MonthlyPoints: 10, CompletedCourses: 2},
		{UserID: users[1], FullName: "User Two", Role: types.RoleIndividual, Points: 120, MonthlyPoints: 40, CompletedCourses: 3},
		{UserID: users[2], FullName: "User Three", Role: types.RoleWorker, CompanyID: &company, Points: 80, MonthlyPoints: 60, CompletedCourses: 1},
	}}

	memCache := cache.NewMemoryCache()
	t.Cleanup(func() { _ = memCache.Close() })

	service := NewService(nil, source, memCache, time.Minute, logger.Discard())
	return &fixture{
		source:  source,
		service: service,
		handler: NewHandler(service, logger.Discard(), 10),
		company: company,
		users:   users,
	}
}

func (f *fixture) serve(t *testing.T, principal *middleware.User, target string, handler gin.HandlerFunc) (int, map[string]any) {
	t.Helper()

	router := gin.New()
	router.Use(request.Handler(nil))
	router.Use(func(c *gin.Context) {
		middleware.SetUser(c, principal)
		c.Next()
	})
	router.GET("/rankings", handler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func entryIDs(t *testing.T, body map[string]any) []string {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	raw, ok := data["entries"].([]any)
	require.True(t, ok)

	ids := make([]string, 0, len(raw))
	for _, e := range raw {
		ids = append(ids, e.(map[string]any)["userId"].(string))
	}
	return ids
}

func TestListBreaksPointTiesByCompletedCourses(t *testing.T) {
	f := newFixture(t)
	admin := &middleware.User{ID: uuid.New(), Role: types.RoleAdmin}

	code, body := f.serve(t, admin, "/rankings", f.handler.List)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{f.users[1].String(), f.users[0].String(), f.users[2].String()}, entryIDs(t, body))
}

func TestListMonthlyAndLimit(t *testing.T) {
	f := newFixture(t)
	admin := &middleware.User{ID: uuid.New(), Role: types.RoleAdmin}

	code, body := f.serve(t, admin, "/rankings?period=monthly&limit=2", f.handler.List)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{f.users[2].String(), f.users[1].String()}, entryIDs(t, body))
	assert.EqualValues(t, 3, body["data"].(map[string]any)["total"])
}

func TestListCompanyScopeForWorker(t *testing.T) {
	f := newFixture(t)
	worker := &middleware.User{ID: f.users[0], Role: types.RoleWorker, CompanyID: &f.company}

	code, body := f.serve(t, worker, "/rankings?scope=company", f.handler.List)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{f.users[0].String(), f.users[2].String()}, entryIDs(t, body))
}

func TestListRejectsBadQueries(t *testing.T) {
	f := newFixture(t)
	individual := &middleware.User{ID: f.users[1], Role: types.RoleIndividual}

	code, _ := f.serve(t, individual, "/rankings?scope=company", f.handler.List)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.serve(t, individual, "/rankings?period=weekly", f.handler.List)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.serve(t, individual, "/rankings?limit=zero", f.handler.List)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMeReturnsPosition(t *testing.T) {
	f := newFixture(t)
	learner := &middleware.User{ID: f.users[2], Role: types.RoleWorker, CompanyID: &f.company}

	code, body := f.serve(t, learner, "/rankings?period=monthly", f.handler.Me)

	require.Equal(t, http.StatusOK, code)
	entry := body["data"].(map[string]any)["entry"].(map[string]any)
	assert.EqualValues(t, 1, entry["rank"])
	assert.EqualValues(t, 60, entry["score"])
}

func TestMeRejectsNonLearners(t *testing.T) {
	f := newFixture(t)
	company := &middleware.User{ID: f.company, Role: types.RoleCompany}

	code, body := f.serve(t, company, "/rankings", f.handler.Me)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}

func TestLeaderboardCachedUntilPointsMove(t *testing.T) {
	f := newFixture(t)
	notifier := &recordingNotifier{}
	f.service.SetNotifier(notifier)
	ctx := context.Background()

	_, err := f.service.Leaderboard(ctx, types.RankingPeriodAllTime, Scope{})
	require.NoError(t, err)
	_, err = f.service.Leaderboard(ctx, types.RankingPeriodAllTime, Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.source.calls)

	hook := f.service.Hook()

	// Nothing that affects ordering: cache stays.
	hook.AfterChange(ctx, tracker.Event{Result: tracker.Result{Action: tracker.ActionEnrolled}})
	_, err = f.service.Leaderboard(ctx, types.RankingPeriodAllTime, Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.source.calls)
	assert.Empty(t, notifier.reasons)

	hook.AfterChange(ctx, tracker.Event{Result: tracker.Result{Action: tracker.ActionMarked, PointsDelta: 10}})
	_, err = f.service.Leaderboard(ctx, types.RankingPeriodAllTime, Scope{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.source.calls)
	assert.Equal(t, []string{"marked"}, notifier.reasons)
}

func TestLeaderboardWithoutCache(t *testing.T) {
	f := newFixture(t)
	service := NewService(nil, f.source, nil, time.Minute, logger.Discard())

	for i := 0; i < 2; i++ {
		entries, err := service.Leaderboard(context.Background(), types.RankingPeriodAllTime, Scope{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
	}
	assert.Equal(t, 2, f.source.calls)
	service.Invalidate(context.Background())
}

func TestMonthHelpers(t *testing.T) {
	at := time.Date(2026, time.January, 1, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, "2025-12", PreviousMonth(at))
	assert.Equal(t, "2026-01", MonthOf(at))

	got, err := ParseMonth("2026-03")
	require.NoError(t, err)
	assert.Equal(t, "2026-03", got)

	_, err = ParseMonth("March")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestListRevalidatesWithETag(t *testing.T) {
	f := newFixture(t)
	admin := &middleware.User{ID: uuid.New(), Role: types.RoleAdmin}

	router := gin.New()
	router.Use(func(c *gin.Context) {
		middleware.SetUser(c, admin)
		c.Next()
	})
	router.GET("/rankings", f.handler.List)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rankings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	req := httptest.NewRequest(http.MethodGet, "/rankings", nil)
	req.Header.Set("If-None-Match", tag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/rankings?period=monthly", nil)
	req.Header.Set("If-None-Match", tag)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
