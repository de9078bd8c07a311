package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "elearning"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query latency by operation and table",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation", "table"},
	)

	completionEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_events_total",
			Help:      "Video completion state changes",
		},
		[]string{"action"},
	)

	courseCompletions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "course_completions_total",
		Help:      "Enrollments that reached 100%",
	})

	rankingCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_cache_total",
			Help:      "Leaderboard cache lookups by result",
		},
		[]string{"result"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Total background job runs",
		},
		[]string{"job"},
	)

	jobErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_errors_total",
			Help:      "Total background job errors",
		},
		[]string{"job"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequests, httpDuration, dbQueryDuration,
		completionEvents, courseCompletions, rankingCache,
		jobRuns, jobErrors, jobDuration,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordDBQuery observes one gorm statement.
func RecordDBQuery(operation, table string, elapsed time.Duration) {
	if table == "" {
		table = "unknown"
	}
	dbQueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// RecordCompletion counts a mark or unmark that changed state.
func RecordCompletion(action string) {
	completionEvents.WithLabelValues(action).Inc()
}

// RecordCourseCompleted counts an enrollment reaching 100%.
func RecordCourseCompleted() {
	courseCompletions.Inc()
}

// RecordRankingCache counts a leaderboard cache hit or miss.
func RecordRankingCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	rankingCache.WithLabelValues(result).Inc()
}

// ObserveJob records a background job run.
func ObserveJob(name string, elapsed time.Duration, err error) {
	jobRuns.WithLabelValues(name).Inc()
	jobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		jobErrors.WithLabelValues(name).Inc()
	}
}
