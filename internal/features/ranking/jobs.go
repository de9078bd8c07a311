package ranking

import "context"

// RolloverJob archives last month's leaderboard and resets monthly points.
type RolloverJob struct {
	service *Service
}

// NewRolloverJob wraps service for the scheduler.
func NewRolloverJob(service *Service) *RolloverJob {
	return &RolloverJob{service: service}
}

func (j *RolloverJob) Name() string { return "ranking-monthly-rollover" }

func (j *RolloverJob) Execute(ctx context.Context) error {
	return j.service.Rollover(ctx)
}
