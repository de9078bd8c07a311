//go:build integration

package gormrepo_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mo-amir99/elearning-server-go/internal/features/course"
	"github.com/mo-amir99/elearning-server-go/internal/features/enrollment"
	"github.com/mo-amir99/elearning-server-go/internal/features/module"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/features/video"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker/gormrepo"
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

type seeded struct {
	learner  user.User
	courseID uuid.UUID
	videos   []uuid.UUID
}

func seed(t *testing.T, db *gorm.DB, videoCount int) seeded {
	t.Helper()
	require.NoError(t, handle.Truncate())

	learner, err := user.Create(db, user.CreateInput{
		FullName: "Ana Individual",
		Email:    "ana@example.com",
		Password: "password123",
		Role:     types.RoleIndividual,
	})
	require.NoError(t, err)

	c := course.Course{Name: "Go basics", Active: true}
	require.NoError(t, db.Create(&c).Error)

	m := module.Module{CourseID: c.ID, Name: "Intro"}
	require.NoError(t, db.Create(&m).Error)

	s := seeded{learner: learner, courseID: c.ID}
	for i := 0; i < videoCount; i++ {
		v := video.Video{
			ModuleID:        m.ID,
			Title:           fmt.Sprintf("Lesson %d", i+1),
			Provider:        types.VideoProviderYouTube,
			ProviderVideoID: fmt.Sprintf("vid%08d", i),
			URL:             fmt.Sprintf("https://www.youtube.com/watch?v=vid%08d", i),
			EmbedURL:        fmt.Sprintf("https://www.youtube.com/embed/vid%08d", i),
			Order:           i,
		}
		require.NoError(t, db.Create(&v).Error)
		s.videos = append(s.videos, v.ID)
	}
	return s
}

func newTracker() *tracker.Tracker {
	return tracker.New(gormrepo.New(handle.DB), tracker.Policy{PerVideo: 10, PerCourse: 50}, logger.Discard())
}

func TestMarkUpdatesEnrollmentAndPoints(t *testing.T) {
	ctx := context.Background()
	s := seed(t, handle.DB, 6)
	tr := newTracker()

	for _, id := range s.videos[:3] {
		_, err := tr.Mark(ctx, s.learner.ID, id)
		require.NoError(t, err)
	}

	p, err := tr.CourseProgress(ctx, s.learner.ID, s.courseID)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Percentage)

	u, err := user.Get(handle.DB, s.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, u.Points)
	assert.Equal(t, 30, u.MonthlyPoints)
	assert.Equal(t, 1, u.EnrolledCourses)
	assert.Equal(t, 0, u.CompletedCourses)
}

func TestMarkThenUnmarkRestoresCounters(t *testing.T) {
	ctx := context.Background()
	s := seed(t, handle.DB, 2)
	tr := newTracker()

	_, err := tr.Mark(ctx, s.learner.ID, s.videos[0])
	require.NoError(t, err)
	before, err := user.Get(handle.DB, s.learner.ID)
	require.NoError(t, err)

	_, err = tr.Mark(ctx, s.learner.ID, s.videos[1])
	require.NoError(t, err)
	completed, err := user.Get(handle.DB, s.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, completed.CompletedCourses)
	assert.Equal(t, 70, completed.Points)

	res, err := tr.Unmark(ctx, s.learner.ID, s.videos[1])
	require.NoError(t, err)
	assert.True(t, res.CourseReopened)

	after, err := user.Get(handle.DB, s.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Points, after.Points)
	assert.Equal(t, before.CompletedCourses, after.CompletedCourses)

	ids, err := tr.CompletedVideoIDs(ctx, s.learner.ID, s.courseID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{s.videos[0]}, ids)
}

func TestMarkTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seed(t, handle.DB, 3)
	tr := newTracker()

	_, err := tr.Mark(ctx, s.learner.ID, s.videos[0])
	require.NoError(t, err)
	res, err := tr.Mark(ctx, s.learner.ID, s.videos[0])
	require.NoError(t, err)
	assert.False(t, res.Changed)

	u, err := user.Get(handle.DB, s.learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, u.Points)
}

func TestUnknownVideo(t *testing.T) {
	s := seed(t, handle.DB, 1)
	_, err := newTracker().Mark(context.Background(), s.learner.ID, uuid.New())
	assert.ErrorIs(t, err, tracker.ErrVideoNotFound)
}

func TestConcurrentMarksOfLastVideosCompleteCourse(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()

	for round := 0; round < 20; round++ {
		s := seed(t, handle.DB, 2)

		var wg sync.WaitGroup
		errs := make([]error, len(s.videos))
		for i, id := range s.videos {
			wg.Add(1)
			go func(i int, id uuid.UUID) {
				defer wg.Done()
				_, errs[i] = tr.Mark(ctx, s.learner.ID, id)
			}(i, id)
		}
		wg.Wait()
		for _, err := range errs {
			require.NoError(t, err, "round %d", round)
		}

		u, err := user.Get(handle.DB, s.learner.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, u.EnrolledCourses, "round %d", round)
		assert.Equal(t, 1, u.CompletedCourses, "round %d", round)
		assert.Equal(t, 70, u.Points, "round %d", round)

		var enr enrollment.Enrollment
		require.NoError(t, handle.DB.Where("user_id = ? AND course_id = ?", s.learner.ID, s.courseID).First(&enr).Error)
		assert.Equal(t, 100, enr.Progress, "round %d", round)
		assert.Equal(t, types.EnrollmentStatusCompleted, enr.Status, "round %d", round)
	}
}
