package tracker

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mo-amir99/elearning-server-go/internal/core/progress"
)

// UserStats are the counters kept on a user row.
type UserStats struct {
	Points           int
	MonthlyPoints    int
	CompletedCourses int
	EnrolledCourses  int
}

// MemoryRepository keeps everything in process memory. It backs tests and
// single-process tooling; WithinTx restores the previous state when fn fails.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryCourse struct {
	name    string
	active  bool
	modules []progress.ModuleOutline
}

type completionKey struct {
	userID  uuid.UUID
	videoID uuid.UUID
}

type memoryCompletion struct {
	courseID    uuid.UUID
	completedAt time.Time
}

type memoryState struct {
	learners    map[uuid.UUID]Learner
	stats       map[uuid.UUID]UserStats
	courses     map[uuid.UUID]memoryCourse
	videos      map[uuid.UUID]VideoLocation
	completions map[completionKey]memoryCompletion
	enrollments map[EnrollmentKey]Enrollment
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{state: &memoryState{
		learners:    map[uuid.UUID]Learner{},
		stats:       map[uuid.UUID]UserStats{},
		courses:     map[uuid.UUID]memoryCourse{},
		videos:      map[uuid.UUID]VideoLocation{},
		completions: map[completionKey]memoryCompletion{},
		enrollments: map[EnrollmentKey]Enrollment{},
	}}
}

// AddUser registers a user with zeroed counters.
func (m *MemoryRepository) AddUser(l Learner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.learners[l.ID] = l
	if _, ok := m.state.stats[l.ID]; !ok {
		m.state.stats[l.ID] = UserStats{}
	}
}

// SetStats overwrites a user's counters.
func (m *MemoryRepository) SetStats(userID uuid.UUID, s UserStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.stats[userID] = s
}

// Stats returns a user's counters.
func (m *MemoryRepository) Stats(userID uuid.UUID) UserStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.stats[userID]
}

// PutCourse stores (or replaces) a course outline. Videos no longer in the outline lose their location.
func (m *MemoryRepository) PutCourse(name string, active bool, outline progress.Outline) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, loc := range m.state.videos {
		if loc.CourseID == outline.CourseID {
			delete(m.state.videos, id)
		}
	}
	m.state.courses[outline.CourseID] = memoryCourse{name: name, active: active, modules: outline.Modules}
	for _, mod := range outline.Modules {
		for _, vid := range mod.VideoIDs {
			m.state.videos[vid] = VideoLocation{
				VideoID:      vid,
				ModuleID:     mod.ModuleID,
				CourseID:     outline.CourseID,
				CourseName:   name,
				CourseActive: active,
			}
		}
	}
}

func (m *MemoryRepository) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *MemoryRepository) Learner(ctx context.Context, userID uuid.UUID) (Learner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Learner(ctx, userID)
}

func (m *MemoryRepository) LockLearner(ctx context.Context, userID uuid.UUID) (Learner, error) {
	return m.Learner(ctx, userID)
}

func (m *MemoryRepository) VideoLocation(ctx context.Context, videoID uuid.UUID) (VideoLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.VideoLocation(ctx, videoID)
}

func (m *MemoryRepository) CourseOutline(ctx context.Context, courseID uuid.UUID) (progress.Outline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CourseOutline(ctx, courseID)
}

func (m *MemoryRepository) InsertCompletion(ctx context.Context, userID uuid.UUID, loc VideoLocation, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.InsertCompletion(ctx, userID, loc, at)
}

func (m *MemoryRepository) DeleteCompletion(ctx context.Context, userID, videoID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteCompletion(ctx, userID, videoID)
}

func (m *MemoryRepository) CompletedVideoIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CompletedVideoIDs(ctx, userID, courseID)
}

func (m *MemoryRepository) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetEnrollment(ctx, userID, courseID)
}

func (m *MemoryRepository) SaveEnrollment(ctx context.Context, enrollment *Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.SaveEnrollment(ctx, enrollment)
}

func (m *MemoryRepository) DeleteEnrollment(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteEnrollment(ctx, userID, courseID)
}

func (m *MemoryRepository) EnrolledUserIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.EnrolledUserIDs(ctx, courseID)
}

func (m *MemoryRepository) EnrollmentKeys(ctx context.Context) ([]EnrollmentKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.EnrollmentKeys(ctx)
}

func (m *MemoryRepository) AdjustUserStats(ctx context.Context, userID uuid.UUID, delta StatsDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.AdjustUserStats(ctx, userID, delta)
}

func (s *memoryState) clone() *memoryState {
	return &memoryState{
		learners:    maps.Clone(s.learners),
		stats:       maps.Clone(s.stats),
		courses:     maps.Clone(s.courses),
		videos:      maps.Clone(s.videos),
		completions: maps.Clone(s.completions),
		enrollments: maps.Clone(s.enrollments),
	}
}

func (s *memoryState) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	return fn(s)
}

func (s *memoryState) Learner(_ context.Context, userID uuid.UUID) (Learner, error) {
	l, ok := s.learners[userID]
	if !ok {
		return Learner{}, ErrUserNotFound
	}
	return l, nil
}

// LockLearner needs no lock of its own: MemoryRepository.WithinTx already runs one fn at a time.
func (s *memoryState) LockLearner(ctx context.Context, userID uuid.UUID) (Learner, error) {
	return s.Learner(ctx, userID)
}

func (s *memoryState) VideoLocation(_ context.Context, videoID uuid.UUID) (VideoLocation, error) {
	loc, ok := s.videos[videoID]
	if !ok {
		return VideoLocation{}, ErrVideoNotFound
	}
	return loc, nil
}

func (s *memoryState) CourseOutline(_ context.Context, courseID uuid.UUID) (progress.Outline, error) {
	c, ok := s.courses[courseID]
	if !ok {
		return progress.Outline{}, ErrCourseNotFound
	}
	modules := make([]progress.ModuleOutline, len(c.modules))
	for i, mod := range c.modules {
		modules[i] = progress.ModuleOutline{ModuleID: mod.ModuleID, VideoIDs: slices.Clone(mod.VideoIDs)}
	}
	return progress.Outline{CourseID: courseID, Modules: modules}, nil
}

func (s *memoryState) InsertCompletion(_ context.Context, userID uuid.UUID, loc VideoLocation, at time.Time) (bool, error) {
	key := completionKey{userID: userID, videoID: loc.VideoID}
	if _, ok := s.completions[key]; ok {
		return false, nil
	}
	s.completions[key] = memoryCompletion{courseID: loc.CourseID, completedAt: at}
	return true, nil
}

func (s *memoryState) DeleteCompletion(_ context.Context, userID, videoID uuid.UUID) (bool, error) {
	key := completionKey{userID: userID, videoID: videoID}
	if _, ok := s.completions[key]; !ok {
		return false, nil
	}
	delete(s.completions, key)
	return true, nil
}

func (s *memoryState) CompletedVideoIDs(_ context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	type row struct {
		id uuid.UUID
		at time.Time
	}
	var rows []row
	for key, c := range s.completions {
		if key.userID == userID && c.courseID == courseID {
			rows = append(rows, row{id: key.videoID, at: c.completedAt})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].at.Before(rows[j].at) })

	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.id
	}
	return ids, nil
}

func (s *memoryState) GetEnrollment(_ context.Context, userID, courseID uuid.UUID) (*Enrollment, error) {
	enr, ok := s.enrollments[EnrollmentKey{UserID: userID, CourseID: courseID}]
	if !ok {
		return nil, nil
	}
	return &enr, nil
}

func (s *memoryState) SaveEnrollment(_ context.Context, enrollment *Enrollment) error {
	if enrollment.ID == uuid.Nil {
		enrollment.ID = uuid.New()
	}
	s.enrollments[EnrollmentKey{UserID: enrollment.UserID, CourseID: enrollment.CourseID}] = *enrollment
	return nil
}

func (s *memoryState) DeleteEnrollment(_ context.Context, userID, courseID uuid.UUID) (bool, error) {
	key := EnrollmentKey{UserID: userID, CourseID: courseID}
	if _, ok := s.enrollments[key]; !ok {
		return false, nil
	}
	delete(s.enrollments, key)
	return true, nil
}

func (s *memoryState) EnrolledUserIDs(_ context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for key := range s.enrollments {
		if key.CourseID == courseID {
			ids = append(ids, key.UserID)
		}
	}
	return ids, nil
}

func (s *memoryState) EnrollmentKeys(_ context.Context) ([]EnrollmentKey, error) {
	return slices.Collect(maps.Keys(s.enrollments)), nil
}

func (s *memoryState) AdjustUserStats(_ context.Context, userID uuid.UUID, d StatsDelta) error {
	if _, ok := s.learners[userID]; !ok {
		return ErrUserNotFound
	}
	st := s.stats[userID]
	st.Points = max(0, st.Points+d.Points)
	st.MonthlyPoints = max(0, st.MonthlyPoints+d.MonthlyPoints)
	st.CompletedCourses = max(0, st.CompletedCourses+d.CompletedCourses)
	st.EnrolledCourses = max(0, st.EnrolledCourses+d.EnrolledCourses)
	s.stats[userID] = st
	return nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*memoryState)(nil)
)
