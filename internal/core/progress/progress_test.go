package progress

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestZeroVideosIsZeroPercent(t *testing.T) {
	outline := Outline{CourseID: uuid.New()}
	got := ForCourse(outline, NewSet(uuid.New()))

	assert.Equal(t, 0, got.TotalVideos)
	assert.Equal(t, 0, got.Percentage)
	assert.False(t, got.Completed())
}

func TestTwoModulesThreeVideosHalfDone(t *testing.T) {
	first, second := ids(3), ids(3)
	outline := Outline{
		CourseID: uuid.New(),
		Modules: []ModuleOutline{
			{ModuleID: uuid.New(), VideoIDs: first},
			{ModuleID: uuid.New(), VideoIDs: second},
		},
	}

	got := ForCourse(outline, NewSet(first[0], first[1], second[2]))

	assert.Equal(t, 3, got.CompletedVideos)
	assert.Equal(t, 6, got.TotalVideos)
	assert.Equal(t, 50, got.Percentage)
}

func TestForeignAndDuplicateIdsStayWithinBounds(t *testing.T) {
	videos := ids(2)
	outline := Outline{
		CourseID: uuid.New(),
		Modules: []ModuleOutline{
			{VideoIDs: []uuid.UUID{videos[0], videos[1], videos[0]}},
		},
	}

	got := ForCourse(outline, NewSet(append(ids(5), videos...)...))

	assert.Equal(t, 2, got.TotalVideos)
	assert.Equal(t, 2, got.CompletedVideos)
	assert.Equal(t, 100, got.Percentage)
	assert.True(t, got.Completed())
}

func TestPercentageRounding(t *testing.T) {
	cases := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{101, 200, 51},
		{1, 200, 1},
		{199, 200, 100},
		{5, 4, 100},
		{-1, 4, 0},
	}
	for _, tc := range cases {
		got := Percentage(tc.completed, tc.total)
		assert.Equal(t, tc.want, got, "%d/%d", tc.completed, tc.total)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestAggregateAndSummarize(t *testing.T) {
	a, b, c := ids(4), ids(2), ids(0)
	outlines := []Outline{
		{CourseID: uuid.New(), Modules: []ModuleOutline{{VideoIDs: a}}},
		{CourseID: uuid.New(), Modules: []ModuleOutline{{VideoIDs: b}}},
		{CourseID: uuid.New(), Modules: []ModuleOutline{{VideoIDs: c}}},
	}
	done := NewSet(a[0], b[0], b[1])

	courses := Aggregate(outlines, done)
	assert.Len(t, courses, 3)
	assert.Equal(t, outlines[0].CourseID, courses[0].CourseID)
	assert.Equal(t, 25, courses[0].Percentage)
	assert.Equal(t, 100, courses[1].Percentage)
	assert.Equal(t, 0, courses[2].Percentage)

	summary := Summarize(courses)
	assert.Equal(t, Summary{
		Courses:          3,
		StartedCourses:   2,
		CompletedCourses: 1,
		CompletedVideos:  3,
		TotalVideos:      6,
		Percentage:       50,
	}, summary)
}

func TestMarkThenUnmarkRestoresProgress(t *testing.T) {
	videos := ids(4)
	outline := Outline{CourseID: uuid.New(), Modules: []ModuleOutline{{VideoIDs: videos}}}
	done := NewSet(videos[0])

	before := ForCourse(outline, done)
	done[videos[2]] = struct{}{}
	assert.Equal(t, 50, ForCourse(outline, done).Percentage)
	delete(done, videos[2])

	assert.Equal(t, before, ForCourse(outline, done))
}
