package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mo-amir99/elearning-server-go/pkg/metrics"
	"github.com/mo-amir99/elearning-server-go/pkg/observability"
)

// DefaultTimeout bounds a single job execution.
const DefaultTimeout = 5 * time.Minute

// Job represents a background job.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// Scheduler runs jobs on cron expressions.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	mu      sync.RWMutex
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler evaluating expressions in UTC.
func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := slogAdapter{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		jobs:    make(map[string]Job),
		logger:  logger,
		timeout: DefaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddJob schedules job with a standard five-field cron spec ("5 0 1 * *").
func (s *Scheduler) AddJob(job Job, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("job %s already registered", job.Name())
	}

	if _, err := s.cron.AddFunc(spec, func() { _ = s.execute(s.ctx, job) }); err != nil {
		return fmt.Errorf("schedule %s with %q: %w", job.Name(), spec, err)
	}
	s.jobs[job.Name()] = job
	s.logger.Info("job scheduled", slog.String("name", job.Name()), slog.String("spec", spec))
	return nil
}

// Start begins evaluating schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started", slog.Int("jobs", len(s.jobs)))
}

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop().Done()

	select {
	case <-done:
		s.logger.Info("job scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("job scheduler stop timed out")
	}
}

// RunOnce executes a registered job immediately.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) execute(parent context.Context, job Job) (err error) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panic", slog.String("name", job.Name()), slog.Any("panic", r))
			observability.CapturePanic(ctx, r, map[string]string{"job": job.Name()})
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
		metrics.ObserveJob(job.Name(), time.Since(start), err)
	}()

	s.logger.Debug("executing job", slog.String("name", job.Name()))

	if err = job.Execute(ctx); err != nil {
		s.logger.Error("job execution failed",
			slog.String("name", job.Name()),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		observability.CaptureErr(ctx, err, map[string]string{"job": job.Name()})
		return err
	}

	s.logger.Info("job completed", slog.String("name", job.Name()), slog.Duration("duration", time.Since(start)))
	return nil
}

// slogAdapter satisfies cron.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug("cron: "+msg, keysAndValues...)
}

func (a slogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)
	a.logger.Error("cron: "+msg, args...)
}
