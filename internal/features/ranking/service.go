package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	core "github.com/mo-amir99/elearning-server-go/internal/core/ranking"
	"github.com/mo-amir99/elearning-server-go/internal/features/user"
	"github.com/mo-amir99/elearning-server-go/internal/services/tracker"
	"github.com/mo-amir99/elearning-server-go/pkg/cache"
	"github.com/mo-amir99/elearning-server-go/pkg/metrics"
	"github.com/mo-amir99/elearning-server-go/pkg/types"
)

const generationKey = "ranking:gen"

// Notifier tells connected clients that a leaderboard moved.
type Notifier interface {
	EmitLeaderboardChanged(reason string)
}

// Service builds and caches leaderboards.
// Cache entries are keyed by a generation counter, so invalidation is a single INCR.
type Service struct {
	db       *gorm.DB
	source   CandidateSource
	cache    cache.Client
	ttl      time.Duration
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time
}

// NewService wires a leaderboard service. cache may be nil to disable caching.
func NewService(db *gorm.DB, source CandidateSource, cacheClient cache.Client, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		source: source,
		cache:  cacheClient,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier registers where leaderboard changes are pushed.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Leaderboard returns every ranked learner in scope for period.
func (s *Service) Leaderboard(ctx context.Context, period types.RankingPeriod, scope Scope) ([]core.Entry, error) {
	key := s.cacheKey(ctx, period, scope)
	if key != "" {
		var entries []core.Entry
		err := cache.GetJSON(ctx, s.cache, key, &entries)
		if err == nil {
			metrics.RecordRankingCache(true)
			return entries, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("leaderboard cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	metrics.RecordRankingCache(false)

	candidates, err := s.source.Candidates(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("load ranking candidates: %w", err)
	}
	entries := core.Build(candidates, period)

	if key != "" {
		if err := cache.SetJSON(ctx, s.cache, key, entries, s.ttl); err != nil {
			s.logger.Warn("leaderboard cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return entries, nil
}

// Invalidate drops every cached leaderboard.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Increment(ctx, generationKey); err != nil {
		s.logger.Warn("leaderboard cache invalidation failed", slog.String("error", err.Error()))
	}
}

// Hook invalidates leaderboards whenever points or completed-course counts move.
func (s *Service) Hook() tracker.Hook {
	return tracker.HookFunc(func(ctx context.Context, evt tracker.Event) {
		r := evt.Result
		if r.PointsDelta == 0 && !r.CourseCompleted && !r.CourseReopened {
			return
		}
		s.Invalidate(ctx)
		s.notify(string(r.Action))
	})
}

// Snapshot stores the monthly leaderboard for period. With reset, every learner's
// monthly points return to zero in the same transaction.
// A stored snapshot taken without reset is provisional: a later reset replaces its
// entries and then resets. Any other repeat returns ErrSnapshotExists.
func (s *Service) Snapshot(ctx context.Context, period string, reset bool) (MonthlySnapshot, error) {
	period, err := ParseMonth(period)
	if err != nil {
		return MonthlySnapshot{}, err
	}

	var snapshot MonthlySnapshot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findSnapshot(tx, period, reset)
		if err != nil {
			return err
		}
		if existing != nil && (existing.ResetPoints || !reset) {
			return ErrSnapshotExists
		}

		if reset {
			// Waits for tracker transactions holding learner row locks and blocks new
			// ones until the snapshot and reset commit together. Plain reads still pass.
			if err := tx.Exec("LOCK TABLE users IN EXCLUSIVE MODE").Error; err != nil {
				return fmt.Errorf("lock users: %w", err)
			}
		}

		candidates, err := NewGormSource(tx).Candidates(ctx, Scope{})
		if err != nil {
			return err
		}
		entries := core.Build(candidates, types.RankingPeriodMonthly)
		payload, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}

		snapshot = MonthlySnapshot{
			Period:      period,
			Entries:     payload,
			Learners:    len(entries),
			ResetPoints: reset,
			GeneratedAt: s.now(),
		}
		if existing != nil {
			snapshot.ID = existing.ID
			snapshot.CreatedAt = existing.CreatedAt
			if err := tx.Save(&snapshot).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&snapshot).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSnapshotExists
			}
			return err
		}

		if reset {
			if err := tx.Model(&user.User{}).
				Where("monthly_points <> ?", 0).
				Update("monthly_points", 0).Error; err != nil {
				return fmt.Errorf("reset monthly points: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return MonthlySnapshot{}, err
	}

	if reset {
		s.Invalidate(ctx)
		s.notify("monthly_rollover")
	}
	s.logger.Info("ranking snapshot stored",
		slog.String("period", period),
		slog.Int("learners", snapshot.Learners),
		slog.Bool("reset", reset),
	)
	return snapshot, nil
}

// Rollover snapshots the month before now and resets monthly points.
// It succeeds without doing anything when that month was already rolled over.
func (s *Service) Rollover(ctx context.Context) error {
	period := PreviousMonth(s.now())
	_, err := s.Snapshot(ctx, period, true)
	if errors.Is(err, ErrSnapshotExists) {
		s.logger.Info("ranking rollover already done", slog.String("period", period))
		return nil
	}
	return err
}

func (s *Service) cacheKey(ctx context.Context, period types.RankingPeriod, scope Scope) string {
	if s.cache == nil {
		return ""
	}
	gen, err := s.cache.Get(ctx, generationKey)
	switch {
	case errors.Is(err, cache.ErrMiss):
		gen = "0"
	case err != nil:
		s.logger.Warn("leaderboard cache unavailable", slog.String("error", err.Error()))
		return ""
	}
	return fmt.Sprintf("ranking:%s:%s:%s", gen, period, scope.Key())
}

func (s *Service) notify(reason string) {
	if s.notifier != nil {
		s.notifier.EmitLeaderboardChanged(reason)
	}
}
