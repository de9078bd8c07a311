// Package tracker records video completions and keeps enrollments, points and
// course counters consistent with them.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mo-amir99/elearning-server-go/internal/core/progress"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

// Policy sets how many points learners earn.
type Policy struct {
	PerVideo  int
	PerCourse int
}

// Action names what a tracker call did.
type Action string

const (
	ActionMarked     Action = "marked"
	ActionUnmarked   Action = "unmarked"
	ActionEnrolled   Action = "enrolled"
	ActionUnenrolled Action = "unenrolled"
	ActionRecomputed Action = "recomputed"
)

// Result describes the state after a tracker call.
type Result struct {
	Action          Action                  `json:"action"`
	UserID          uuid.UUID               `json:"userId"`
	CourseID        uuid.UUID               `json:"courseId"`
	VideoID         uuid.UUID               `json:"videoId,omitempty"`
	Completed       bool                    `json:"completed"`
	Changed         bool                    `json:"changed"`
	Progress        progress.CourseProgress `json:"progress"`
	Enrollment      *Enrollment             `json:"enrollment,omitempty"`
	PointsDelta     int                     `json:"pointsDelta"`
	CourseCompleted bool                    `json:"courseCompleted"`
	CourseReopened  bool                    `json:"courseReopened"`
}

// Tracker toggles completion state and derives everything that depends on it.
type Tracker struct {
	repo   Repository
	policy Policy
	logger *slog.Logger
	hooks  []Hook
	now    func() time.Time
}

// New builds a tracker. Hooks run after each committed change.
func New(repo Repository, policy Policy, logger *slog.Logger, hooks ...Hook) *Tracker {
	return &Tracker{
		repo:   repo,
		policy: policy,
		logger: logger,
		hooks:  hooks,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Use appends hooks.
func (t *Tracker) Use(hooks ...Hook) {
	t.hooks = append(t.hooks, hooks...)
}

// Mark records that userID finished videoID. Marking twice is a no-op.
// The learner is enrolled in the video's course if they were not already.
func (t *Tracker) Mark(ctx context.Context, userID, videoID uuid.UUID) (Result, error) {
	return t.change(ctx, ActionMarked, userID, videoID)
}

// Unmark removes the completion record. Unmarking an absent record is a no-op.
func (t *Tracker) Unmark(ctx context.Context, userID, videoID uuid.UUID) (Result, error) {
	return t.change(ctx, ActionUnmarked, userID, videoID)
}

// Toggle flips the completion state of the pair.
func (t *Tracker) Toggle(ctx context.Context, userID, videoID uuid.UUID) (Result, error) {
	return t.change(ctx, "", userID, videoID)
}

func (t *Tracker) change(ctx context.Context, action Action, userID, videoID uuid.UUID) (Result, error) {
	var (
		res Result
		evt Event
	)

	err := t.repo.WithinTx(ctx, func(repo Repository) error {
		learner, err := t.learner(ctx, repo, userID)
		if err != nil {
			return err
		}
		loc, err := repo.VideoLocation(ctx, videoID)
		if err != nil {
			return err
		}

		var changed bool
		if action == "" {
			if changed, err = repo.DeleteCompletion(ctx, userID, videoID); err != nil {
				return err
			}
			action = ActionUnmarked
			if !changed {
				action = ActionMarked
			}
		}

		var delta StatsDelta
		switch action {
		case ActionMarked:
			if !loc.CourseActive {
				return ErrInactiveCourse
			}
			if changed, err = repo.InsertCompletion(ctx, userID, loc, t.now()); err != nil {
				return err
			}
			if changed {
				delta.Points += t.policy.PerVideo
				delta.MonthlyPoints += t.policy.PerVideo
			}
		case ActionUnmarked:
			if !changed {
				if changed, err = repo.DeleteCompletion(ctx, userID, videoID); err != nil {
					return err
				}
			}
			if changed {
				delta.Points -= t.policy.PerVideo
				delta.MonthlyPoints -= t.policy.PerVideo
			}
		}

		s, err := t.sync(ctx, repo, userID, loc.CourseID, action == ActionMarked && changed, nil)
		if err != nil {
			return err
		}
		delta = delta.add(s.delta)
		if !delta.IsZero() {
			if err := repo.AdjustUserStats(ctx, userID, delta); err != nil {
				return err
			}
		}

		res = Result{
			Action:          action,
			UserID:          userID,
			CourseID:        loc.CourseID,
			VideoID:         videoID,
			Completed:       action == ActionMarked,
			Changed:         changed,
			Progress:        s.progress,
			Enrollment:      s.enrollment,
			PointsDelta:     delta.Points,
			CourseCompleted: s.completed,
			CourseReopened:  s.reopened,
		}
		evt = Event{Result: res, Learner: learner, CourseName: loc.CourseName}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Changed {
		t.emit(ctx, evt)
	}
	return res, nil
}

// Enroll adds the learner to a course. Enrolling twice is a no-op.
// Completions recorded before (for example ahead of an unenroll) count immediately.
func (t *Tracker) Enroll(ctx context.Context, userID, courseID uuid.UUID, assignedBy *uuid.UUID) (Result, error) {
	var (
		res Result
		evt Event
	)

	err := t.repo.WithinTx(ctx, func(repo Repository) error {
		learner, err := t.learner(ctx, repo, userID)
		if err != nil {
			return err
		}

		existing, err := repo.GetEnrollment(ctx, userID, courseID)
		if err != nil {
			return err
		}

		s, err := t.sync(ctx, repo, userID, courseID, existing == nil, assignedBy)
		if err != nil {
			return err
		}
		if !s.delta.IsZero() {
			if err := repo.AdjustUserStats(ctx, userID, s.delta); err != nil {
				return err
			}
		}

		res = Result{
			Action:          ActionEnrolled,
			UserID:          userID,
			CourseID:        courseID,
			Completed:       s.progress.Completed(),
			Changed:         existing == nil,
			Progress:        s.progress,
			Enrollment:      s.enrollment,
			PointsDelta:     s.delta.Points,
			CourseCompleted: s.completed,
		}
		evt = Event{Result: res, Learner: learner}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Changed {
		t.emit(ctx, evt)
	}
	return res, nil
}

// Unenroll drops the enrollment and its course bonus. Completion records are kept.
func (t *Tracker) Unenroll(ctx context.Context, userID, courseID uuid.UUID) (Result, error) {
	var (
		res Result
		evt Event
	)

	err := t.repo.WithinTx(ctx, func(repo Repository) error {
		learner, err := t.learner(ctx, repo, userID)
		if err != nil {
			return err
		}

		enr, err := repo.GetEnrollment(ctx, userID, courseID)
		if err != nil {
			return err
		}
		if enr == nil {
			return ErrNotEnrolled
		}
		if _, err := repo.DeleteEnrollment(ctx, userID, courseID); err != nil {
			return err
		}

		delta := StatsDelta{EnrolledCourses: -1}
		reopened := enr.Status == types.EnrollmentStatusCompleted
		if reopened {
			delta = delta.add(t.courseBonus(-1))
		}
		if err := repo.AdjustUserStats(ctx, userID, delta); err != nil {
			return err
		}

		res = Result{
			Action:         ActionUnenrolled,
			UserID:         userID,
			CourseID:       courseID,
			Changed:        true,
			Progress:       progress.CourseProgress{CourseID: courseID, CompletedVideos: enr.CompletedVideos, TotalVideos: enr.TotalVideos, Percentage: enr.Progress},
			PointsDelta:    delta.Points,
			CourseReopened: reopened,
		}
		evt = Event{Result: res, Learner: learner}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	t.emit(ctx, evt)
	return res, nil
}

// Recompute rebuilds one enrollment from the completion records and the current outline.
// Users that are not enrolled get their progress back with a nil Enrollment.
func (t *Tracker) Recompute(ctx context.Context, userID, courseID uuid.UUID) (Result, error) {
	var (
		res Result
		evt Event
	)

	err := t.repo.WithinTx(ctx, func(repo Repository) error {
		learner, err := repo.LockLearner(ctx, userID)
		if err != nil {
			return err
		}

		s, err := t.sync(ctx, repo, userID, courseID, false, nil)
		if err != nil {
			return err
		}
		if !s.delta.IsZero() {
			if err := repo.AdjustUserStats(ctx, userID, s.delta); err != nil {
				return err
			}
		}

		res = Result{
			Action:          ActionRecomputed,
			UserID:          userID,
			CourseID:        courseID,
			Completed:       s.progress.Completed(),
			Changed:         s.changed,
			Progress:        s.progress,
			Enrollment:      s.enrollment,
			PointsDelta:     s.delta.Points,
			CourseCompleted: s.completed,
			CourseReopened:  s.reopened,
		}
		evt = Event{Result: res, Learner: learner}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Changed {
		t.emit(ctx, evt)
	}
	return res, nil
}

// RecomputeCourse recomputes every enrollment of a course, typically after its videos changed.
// It returns how many enrollments changed.
func (t *Tracker) RecomputeCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	userIDs, err := t.repo.EnrolledUserIDs(ctx, courseID)
	if err != nil {
		return 0, err
	}

	keys := make([]EnrollmentKey, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, EnrollmentKey{UserID: id, CourseID: courseID})
	}
	return t.recomputeKeys(ctx, keys)
}

// UnenrollCourse drops every enrollment of a course ahead of its deletion,
// reversing enrolled-course counts and course bonuses. It returns how many were dropped.
func (t *Tracker) UnenrollCourse(ctx context.Context, courseID uuid.UUID) (int, error) {
	userIDs, err := t.repo.EnrolledUserIDs(ctx, courseID)
	if err != nil {
		return 0, err
	}

	var (
		dropped int
		errs    []error
	)
	for _, id := range userIDs {
		if _, err := t.Unenroll(ctx, id, courseID); err != nil {
			if errors.Is(err, ErrNotEnrolled) {
				continue
			}
			errs = append(errs, fmt.Errorf("user %s: %w", id, err))
			continue
		}
		dropped++
	}
	return dropped, errors.Join(errs...)
}

// RecomputeAll recomputes every enrollment.
func (t *Tracker) RecomputeAll(ctx context.Context) (int, error) {
	keys, err := t.repo.EnrollmentKeys(ctx)
	if err != nil {
		return 0, err
	}
	return t.recomputeKeys(ctx, keys)
}

func (t *Tracker) recomputeKeys(ctx context.Context, keys []EnrollmentKey) (int, error) {
	var (
		changed int
		errs    []error
	)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := t.Recompute(ctx, key.UserID, key.CourseID)
		if err != nil {
			t.logger.Warn("recompute enrollment failed",
				slog.String("userId", key.UserID.String()),
				slog.String("courseId", key.CourseID.String()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("user %s course %s: %w", key.UserID, key.CourseID, err))
			continue
		}
		if res.Changed {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

// CompletedVideoIDs lists the videos of a course the user completed.
func (t *Tracker) CompletedVideoIDs(ctx context.Context, userID, courseID uuid.UUID) ([]uuid.UUID, error) {
	return t.repo.CompletedVideoIDs(ctx, userID, courseID)
}

// CourseProgress aggregates a course for a user without writing anything.
func (t *Tracker) CourseProgress(ctx context.Context, userID, courseID uuid.UUID) (progress.CourseProgress, error) {
	outline, err := t.repo.CourseOutline(ctx, courseID)
	if err != nil {
		return progress.CourseProgress{}, err
	}
	ids, err := t.repo.CompletedVideoIDs(ctx, userID, courseID)
	if err != nil {
		return progress.CourseProgress{}, err
	}
	return progress.ForCourse(outline, progress.NewSet(ids...)), nil
}

// learner locks the user for the rest of the transaction and checks they can track progress.
func (t *Tracker) learner(ctx context.Context, repo Repository, userID uuid.UUID) (Learner, error) {
	learner, err := repo.LockLearner(ctx, userID)
	if err != nil {
		return Learner{}, err
	}
	if !learner.Role.IsLearner() {
		return Learner{}, ErrNotLearner
	}
	return learner, nil
}

func (t *Tracker) courseBonus(sign int) StatsDelta {
	return StatsDelta{
		Points:           sign * t.policy.PerCourse,
		MonthlyPoints:    sign * t.policy.PerCourse,
		CompletedCourses: sign,
	}
}

type syncResult struct {
	progress   progress.CourseProgress
	enrollment *Enrollment
	delta      StatsDelta
	changed    bool
	completed  bool
	reopened   bool
}

// sync aligns the stored enrollment with the completion records and reports the counter delta.
func (t *Tracker) sync(ctx context.Context, repo Repository, userID, courseID uuid.UUID, enroll bool, assignedBy *uuid.UUID) (syncResult, error) {
	outline, err := repo.CourseOutline(ctx, courseID)
	if err != nil {
		return syncResult{}, err
	}
	ids, err := repo.CompletedVideoIDs(ctx, userID, courseID)
	if err != nil {
		return syncResult{}, err
	}

	out := syncResult{progress: progress.ForCourse(outline, progress.NewSet(ids...))}

	enr, err := repo.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return syncResult{}, err
	}

	created := false
	if enr == nil {
		if !enroll {
			return out, nil
		}
		enr = &Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			Status:     types.EnrollmentStatusEnrolled,
			EnrolledAt: t.now(),
			AssignedBy: assignedBy,
		}
		created = true
		out.delta.EnrolledCourses = 1
	}

	wasCompleted := !created && enr.Status == types.EnrollmentStatusCompleted
	nowCompleted := out.progress.Completed()

	before := *enr
	enr.CompletedVideos = out.progress.CompletedVideos
	enr.TotalVideos = out.progress.TotalVideos
	enr.Progress = out.progress.Percentage
	enr.Status = types.EnrollmentStatusFor(out.progress.CompletedVideos, out.progress.TotalVideos)

	switch {
	case nowCompleted && !wasCompleted:
		now := t.now()
		enr.CompletedAt = &now
		out.delta = out.delta.add(t.courseBonus(1))
		out.completed = true
	case !nowCompleted && wasCompleted:
		enr.CompletedAt = nil
		out.delta = out.delta.add(t.courseBonus(-1))
		out.reopened = true
	}

	out.changed = created || enrollmentChanged(before, *enr)
	if out.changed {
		if err := repo.SaveEnrollment(ctx, enr); err != nil {
			return syncResult{}, err
		}
	}
	out.enrollment = enr
	return out, nil
}

func enrollmentChanged(a, b Enrollment) bool {
	return a.CompletedVideos != b.CompletedVideos ||
		a.TotalVideos != b.TotalVideos ||
		a.Progress != b.Progress ||
		a.Status != b.Status ||
		(a.CompletedAt == nil) != (b.CompletedAt == nil)
}

func (t *Tracker) emit(ctx context.Context, evt Event) {
	for _, h := range t.hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("tracker hook panicked", slog.Any("panic", r), slog.String("action", string(evt.Result.Action)))
				}
			}()
			h.AfterChange(ctx, evt)
		}()
	}
}
