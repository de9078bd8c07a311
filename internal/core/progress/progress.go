// Package progress turns completion records into course and learner percentages.
// Everything here is pure: callers load outlines and completed video ids from storage.
package progress

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outline is the ordered video structure of one course.
type Outline struct {
	CourseID uuid.UUID       `json:"courseId"`
	Modules  []ModuleOutline `json:"modules"`
}

// ModuleOutline lists a module's videos in display order.
type ModuleOutline struct {
	ModuleID uuid.UUID   `json:"moduleId"`
	VideoIDs []uuid.UUID `json:"videoIds"`
}

// VideoIDs returns every distinct video of the course in outline order.
func (o Outline) VideoIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, m := range o.Modules {
		for _, id := range m.VideoIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// CourseProgress is the aggregated state of one course for one learner.
type CourseProgress struct {
	CourseID        uuid.UUID `json:"courseId"`
	CompletedVideos int       `json:"completedVideos"`
	TotalVideos     int       `json:"totalVideos"`
	Percentage      int       `json:"percentage"`
}

// Completed reports whether every video of a non-empty course is done.
func (p CourseProgress) Completed() bool {
	return p.TotalVideos > 0 && p.CompletedVideos >= p.TotalVideos
}

// Set is a collection of completed video ids.
type Set map[uuid.UUID]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...uuid.UUID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

// Percentage returns round(100*completed/total) clamped to [0,100]; zero when total is zero.
// Halves round away from zero.
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed >= total {
		return 100
	}
	pct := decimal.NewFromInt(int64(completed)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(0)
	return int(pct.IntPart())
}

// ForCourse aggregates one course. Completed ids outside the outline are ignored.
func ForCourse(outline Outline, completed Set) CourseProgress {
	videos := outline.VideoIDs()
	done := 0
	for _, id := range videos {
		if completed.Has(id) {
			done++
		}
	}
	return CourseProgress{
		CourseID:        outline.CourseID,
		CompletedVideos: done,
		TotalVideos:     len(videos),
		Percentage:      Percentage(done, len(videos)),
	}
}

// Aggregate computes progress for every outline, preserving input order.
func Aggregate(outlines []Outline, completed Set) []CourseProgress {
	out := make([]CourseProgress, 0, len(outlines))
	for _, o := range outlines {
		out = append(out, ForCourse(o, completed))
	}
	return out
}

// Summary is a learner's progress across several courses.
type Summary struct {
	Courses          int `json:"courses"`
	StartedCourses   int `json:"startedCourses"`
	CompletedCourses int `json:"completedCourses"`
	CompletedVideos  int `json:"completedVideos"`
	TotalVideos      int `json:"totalVideos"`
	Percentage       int `json:"percentage"`
}

// Summarize folds course progress into a per-learner summary.
// The percentage weighs courses by their video count.
func Summarize(courses []CourseProgress) Summary {
	var s Summary
	for _, c := range courses {
		s.Courses++
		s.CompletedVideos += c.CompletedVideos
		s.TotalVideos += c.TotalVideos
		if c.CompletedVideos > 0 {
			s.StartedCourses++
		}
		if c.Completed() {
			s.CompletedCourses++
		}
	}
	s.Percentage = Percentage(s.CompletedVideos, s.TotalVideos)
	return s
}
