package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	router.GET("/courses/:courseId", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/courses/:courseId", "200"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/courses/42", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/courses/:courseId", "200"))

	assert.Equal(t, before+1, after)
}

func TestObserveJobCountsErrors(t *testing.T) {
	before := testutil.ToFloat64(jobErrors.WithLabelValues("test-job"))
	ObserveJob("test-job", time.Millisecond, errors.New("boom"))
	ObserveJob("test-job", time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(jobErrors.WithLabelValues("test-job")))
}

func TestRecordCompletion(t *testing.T) {
	before := testutil.ToFloat64(completionEvents.WithLabelValues("mark"))
	RecordCompletion("mark")
	assert.Equal(t, before+1, testutil.ToFloat64(completionEvents.WithLabelValues("mark")))
}
