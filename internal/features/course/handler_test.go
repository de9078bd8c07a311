package course

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/internal/middleware"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/media"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLookup struct {
	meta  media.Metadata
	err   error
	calls int
}

func (s *stubLookup) Lookup(_ context.Context, _ string) (media.Metadata, error) {
	s.calls++
	return s.meta, s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string            `json:"code"`
		Retryable bool              `json:"retryable"`
		Fields    map[string]string `json:"fields"`
	} `json:"error"`
}

func newRouter(lookup media.Lookuper) *gin.Engine {
	h := NewHandler(nil, logger.Discard(), nil, lookup)

	router := gin.New()
	router.Use(request.Handler(nil))
	router.Use(func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: uuid.New(), Role: types.RoleAdmin, Active: true})
		c.Next()
	})
	router.GET("/courses/:courseId", h.GetByID)
	router.POST("/courses", h.Create)
	router.PUT("/courses/:courseId", h.Update)
	router.GET("/media/lookup", h.LookupMedia)
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w.Code, env
}

func TestLookupMediaRequiresURL(t *testing.T) {
	lookup := &stubLookup{}

	code, env := do(t, newRouter(lookup), http.MethodGet, "/media/lookup?url=%20", "")

	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "required", env.Error.Fields["url"])
	assert.Zero(t, lookup.calls)
}

func TestLookupMediaMapsProviderErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{name: "unsupported host", err: media.ErrUnsupportedProvider, status: http.StatusBadRequest},
		{name: "private video", err: media.ErrVideoNotFound, status: http.StatusNotFound},
		{name: "provider down", err: media.ErrLookupFailed, status: http.StatusServiceUnavailable, retryable: true},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, retryable: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := "/media/lookup?url=" + url.QueryEscape("https://vimeo.com/76979871")
			code, env := do(t, newRouter(&stubLookup{err: tc.err}), http.MethodGet, path, "")

			assert.Equal(t, tc.status, code)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.retryable, env.Error.Retryable)
		})
	}
}

func TestLookupMediaReturnsMetadata(t *testing.T) {
	lookup := &stubLookup{meta: media.Metadata{
		Source:          media.Source{Provider: types.VideoProviderVimeo, ID: "76979871"},
		Title:           "Ladder Safety",
		DurationSeconds: 312,
		Resolved:        true,
	}}

	path := "/media/lookup?url=" + url.QueryEscape("https://vimeo.com/76979871")
	code, env := do(t, newRouter(lookup), http.MethodGet, path, "")

	require.Equal(t, http.StatusOK, code)
	var meta media.Metadata
	require.NoError(t, json.Unmarshal(env.Data, &meta))
	assert.Equal(t, "Ladder Safety", meta.Title)
	assert.Equal(t, 312, meta.DurationSeconds)
	assert.Equal(t, 1, lookup.calls)
}

func TestCourseRequestsValidatedBeforeStorage(t *testing.T) {
	router := newRouter(&stubLookup{})
	id := uuid.New().String()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "malformed id", method: http.MethodGet, path: "/courses/42"},
		{name: "missing name", method: http.MethodPost, path: "/courses", body: `{"description":"no name"}`},
		{name: "too many tags", method: http.MethodPost, path: "/courses", body: `{"name":"Tags","tags":["a","b","c","d","e","f","g","h","i","j","k"]}`},
		{name: "bad image", method: http.MethodPost, path: "/courses", body: `{"name":"Img","image":"not a url"}`},
		{name: "negative order", method: http.MethodPut, path: "/courses/" + id, body: `{"order":-1}`},
		{name: "fractional order", method: http.MethodPut, path: "/courses/" + id, body: `{"order":1.5}`},
		{name: "tags not a list", method: http.MethodPut, path: "/courses/" + id, body: `{"tags":"safety"}`},
		{name: "active not a bool", method: http.MethodPut, path: "/courses/" + id, body: `{"isActive":"yes"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, env := do(t, router, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, env.Success)
		})
	}
}
