package module

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/request"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCreateValidatesBeforeStorage(t *testing.T) {
	h := NewHandler(nil, logger.Discard(), nil)
	router := gin.New()
	router.Use(request.Handler(nil))
	router.POST("/courses/:courseId/modules", h.Create)

	cases := []struct {
		name     string
		courseID string
		body     string
	}{
		{name: "malformed course id", courseID: "intro", body: `{"name":"Basics"}`},
		{name: "missing name", courseID: uuid.New().String(), body: `{"order":1}`},
		{name: "long description", courseID: uuid.New().String(), body: `{"name":"Basics","description":"` + strings.Repeat("x", 1001) + `"}`},
		{name: "not json", courseID: uuid.New().String(), body: `name=Basics`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/courses/"+tc.courseID+"/modules", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRespondErrorStatuses(t *testing.T) {
	h := NewHandler(nil, logger.Discard(), nil)

	cases := map[error]int{
		ErrModuleNotFound:        http.StatusNotFound,
		course.ErrCourseNotFound: http.StatusNotFound,
		ErrNameRequired:          http.StatusBadRequest,
		ErrNameLength:            http.StatusBadRequest,
		ErrOrderInvalid:          http.StatusBadRequest,
		errors.New("db down"):    http.StatusInternalServerError,
	}

	for err, status := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		h.respondError(c, err, "failed")

		assert.Equal(t, status, w.Code, err.Error())
	}
}
