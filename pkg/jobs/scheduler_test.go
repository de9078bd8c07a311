package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/pkg/logger"
)

type fakeJob struct {
	name  string
	runs  int
	err   error
	panic bool
}

func (j *fakeJob) Name() string { return j.name }

func (j *fakeJob) Execute(ctx context.Context) error {
	j.runs++
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestRunOnce(t *testing.T) {
	s := NewScheduler(logger.Discard())
	job := &fakeJob{name: "reconcile"}
	require.NoError(t, s.AddJob(job, "30 3 * * *"))

	require.NoError(t, s.RunOnce(context.Background(), "reconcile"))
	assert.Equal(t, 1, job.runs)

	assert.Error(t, s.RunOnce(context.Background(), "missing"))
}

func TestAddJobRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewScheduler(logger.Discard())

	assert.Error(t, s.AddJob(&fakeJob{name: "a"}, "not a cron"))
	require.NoError(t, s.AddJob(&fakeJob{name: "a"}, "@daily"))
	assert.Error(t, s.AddJob(&fakeJob{name: "a"}, "@hourly"))
}

func TestExecuteRecoversPanicsAndReturnsErrors(t *testing.T) {
	s := NewScheduler(logger.Discard())

	failing := &fakeJob{name: "failing", err: errors.New("db down")}
	require.NoError(t, s.AddJob(failing, "@daily"))
	assert.EqualError(t, s.RunOnce(context.Background(), "failing"), "db down")

	panicking := &fakeJob{name: "panicking", panic: true}
	require.NoError(t, s.AddJob(panicking, "@daily"))
	assert.Error(t, s.RunOnce(context.Background(), "panicking"))
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(logger.Discard())
	s.Start()
	s.Stop(context.Background())
}
