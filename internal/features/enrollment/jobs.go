package enrollment

import (
	"context"
	"log/slog"

	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
)

// ReconcileJob rebuilds every enrollment from completion records and the current catalog.
type ReconcileJob struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewReconcileJob wraps tr for the scheduler.
func NewReconcileJob(tr *tracker.Tracker, logger *slog.Logger) *ReconcileJob {
	return &ReconcileJob{tracker: tr, logger: logger}
}

func (j *ReconcileJob) Name() string { return "enrollment-reconcile" }

func (j *ReconcileJob) Execute(ctx context.Context) error {
	changed, err := j.tracker.RecomputeAll(ctx)
	j.logger.Info("enrollments reconciled", slog.Int("changed", changed))
	return err
}
