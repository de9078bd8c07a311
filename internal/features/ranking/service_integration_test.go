//go:build integration

package ranking_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/elearning-server-go/internal/features/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/testutil/testdb"
	"github.com/mo-amir99/elearning-server-go/pkg/logger"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

var handle *testdb.Handle

func TestMain(m *testing.M) {
	h, err := testdb.Start(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		os.Exit(1)
	}
	handle = h
	code := m.Run()
	h.Close()
	os.Exit(code)
}

func seedLearner(t *testing.T, email string, monthly int) user.User {
	t.Helper()
	u, err := user.Create(handle.DB, user.CreateInput{
		FullName: "Learner " + email,
		Email:    email,
		Password: "password123",
		Role:     types.RoleIndividual,
	})
	require.NoError(t, err)
	require.NoError(t, handle.DB.Model(&u).Updates(map[string]any{"points": monthly, "monthly_points": monthly}).Error)
	return u
}

func newService() *ranking.Service {
	db := handle.DB
	return ranking.NewService(db, ranking.NewGormSource(db), nil, time.Minute, logger.Discard())
}

func TestRolloverResetsAfterManualSnapshot(t *testing.T) {
	require.NoError(t, handle.Truncate())
	ctx := context.Background()
	svc := newService()
	period := ranking.PreviousMonth(time.Now())

	first := seedLearner(t, "first@example.com", 40)
	seedLearner(t, "second@example.com", 25)

	manual, err := svc.Snapshot(ctx, period, false)
	require.NoError(t, err)
	assert.False(t, manual.ResetPoints)

	// Points earned after the manual snapshot belong in the final one.
	require.NoError(t, handle.DB.Model(&user.User{}).Where("id = ?", first.ID).
		Update("monthly_points", 55).Error)

	require.NoError(t, svc.Rollover(ctx))

	var monthly []int
	require.NoError(t, handle.DB.Model(&user.User{}).Order("email").Pluck("monthly_points", &monthly).Error)
	assert.Equal(t, []int{0, 0}, monthly)

	stored, err := ranking.GetSnapshot(handle.DB, period)
	require.NoError(t, err)
	assert.True(t, stored.ResetPoints)
	assert.Equal(t, manual.ID, stored.ID)
	entries, err := stored.DecodeEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].UserID)
	assert.EqualValues(t, 55, entries[0].Score)
}

func TestRolloverRunsOnce(t *testing.T) {
	require.NoError(t, handle.Truncate())
	ctx := context.Background()
	svc := newService()
	period := ranking.PreviousMonth(time.Now())

	u := seedLearner(t, "once@example.com", 30)
	require.NoError(t, svc.Rollover(ctx))

	require.NoError(t, handle.DB.Model(&user.User{}).Where("id = ?", u.ID).Update("monthly_points", 10).Error)
	require.NoError(t, svc.Rollover(ctx))

	reloaded, err := user.Get(handle.DB, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.MonthlyPoints)

	_, err = svc.Snapshot(ctx, period, true)
	assert.ErrorIs(t, err, ranking.ErrSnapshotExists)
	_, err = svc.Snapshot(ctx, period, false)
	assert.ErrorIs(t, err, ranking.ErrSnapshotExists)
}
