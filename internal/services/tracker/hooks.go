package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mo-amir99/elearning-server-go/pkg/metrics"
	"github.com/mo-amir99/elearning-server-go/pkg/realtime"
)

// Event is handed to hooks after a change commits.
type Event struct {
	Result     Result
	Learner    Learner
	CourseName string
}

// Hook reacts to committed tracker changes. Hooks must not block for long.
type Hook interface {
	AfterChange(ctx context.Context, evt Event)
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, evt Event)

func (f HookFunc) AfterChange(ctx context.Context, evt Event) { f(ctx, evt) }

// MetricsHook counts completions and finished courses.
func MetricsHook() Hook {
	return HookFunc(func(_ context.Context, evt Event) {
		metrics.RecordCompletion(string(evt.Result.Action))
		if evt.Result.CourseCompleted {
			metrics.RecordCourseCompleted()
		}
	})
}

// ProgressPusher is the realtime surface the tracker pushes to.
type ProgressPusher interface {
	EmitProgress(companyID *uuid.UUID, payload realtime.ProgressPayload)
	EmitCourseCompleted(userID, courseID uuid.UUID, bonus int)
}

// RealtimeHook pushes progress to the learner's sockets and their company's.
func RealtimeHook(pusher ProgressPusher, policy Policy) Hook {
	return HookFunc(func(_ context.Context, evt Event) {
		r := evt.Result
		pusher.EmitProgress(evt.Learner.CompanyID, realtime.ProgressPayload{
			UserID:          r.UserID,
			CourseID:        r.CourseID,
			VideoID:         r.VideoID,
			Completed:       r.Completed,
			CompletedVideos: r.Progress.CompletedVideos,
			TotalVideos:     r.Progress.TotalVideos,
			Percentage:      r.Progress.Percentage,
			PointsDelta:     r.PointsDelta,
		})
		if r.CourseCompleted {
			pusher.EmitCourseCompleted(r.UserID, r.CourseID, policy.PerCourse)
		}
	})
}

// CourseMailer sends the course-completed email.
type CourseMailer interface {
	SendCourseCompleted(ctx context.Context, to, name, courseName string, bonus int) error
}

const emailTimeout = 30 * time.Second

// EmailHook congratulates learners that finish a course. Each email is sent in the
// background; Close waits for the ones still in flight.
type EmailHook struct {
	mailer CourseMailer
	policy Policy
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewEmailHook builds the course-completed email hook.
func NewEmailHook(mailer CourseMailer, policy Policy, logger *slog.Logger) *EmailHook {
	return &EmailHook{mailer: mailer, policy: policy, logger: logger}
}

// AfterChange queues the email for a freshly completed course. After Close it only logs.
func (h *EmailHook) AfterChange(ctx context.Context, evt Event) {
	if !evt.Result.CourseCompleted || evt.Learner.Email == "" {
		return
	}
	courseName := evt.CourseName
	if courseName == "" {
		courseName = "your course"
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Warn("course completion email skipped during shutdown",
			slog.String("userId", evt.Learner.ID.String()),
			slog.String("courseId", evt.Result.CourseID.String()),
		)
		return
	}
	h.pending.Add(1)
	h.mu.Unlock()

	go func(ctx context.Context) {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(ctx, emailTimeout)
		defer cancel()
		if err := h.mailer.SendCourseCompleted(ctx, evt.Learner.Email, evt.Learner.FullName, courseName, h.policy.PerCourse); err != nil {
			h.logger.Warn("course completion email failed",
				slog.String("userId", evt.Learner.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}(context.WithoutCancel(ctx))
}

// Close stops queueing emails and waits for those in flight until ctx ends.
func (h *EmailHook) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
