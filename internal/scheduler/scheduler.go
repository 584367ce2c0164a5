package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"video_notifier/internal/config"
	"video_notifier/internal/domain"
	"video_notifier/internal/metrics"
)

// Checker runs one guild's check cycle.
type Checker interface {
	CheckGuild(ctx context.Context, sched domain.Schedule, now time.Time) (*domain.CheckResult, error)
}

// ScheduleLister returns every guild that has a schedule.
type ScheduleLister interface {
	List(ctx context.Context) ([]domain.Schedule, error)
}

// TickStats summarizes one pass over all scheduled guilds.
type TickStats struct {
	Guilds   int
	Due      int
	Notified int
	Failed   int
}

type Scheduler struct {
	checker        Checker
	schedules      ScheduleLister
	interval       time.Duration
	taskTimeout    time.Duration
	maxConcurrency int
	now            func() time.Time
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

func NewScheduler(
	checker Checker,
	schedules ScheduleLister,
	cfg config.SchedulerConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		checker:        checker,
		schedules:      schedules,
		interval:       cfg.Interval,
		taskTimeout:    cfg.TaskTimeout,
		maxConcurrency: cfg.MaxConcurrency,
		now:            time.Now,
		metrics:        m,
		logger:         logger,
	}
}

// Start runs a reconciliation pass immediately, then one pass per interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"interval", s.interval,
		"task_timeout", s.taskTimeout,
		"max_concurrency", s.maxConcurrency,
	)

	s.Tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates every scheduled guild at the same instant and waits for all cycles to finish.
func (s *Scheduler) Tick(ctx context.Context) TickStats {
	s.metrics.Ticks.Inc()
	now := s.now().UTC()

	schedules, err := s.schedules.List(ctx)
	if err != nil {
		s.metrics.StoreFaults.Inc()
		s.logger.Error("list schedules failed", "error", err)
		return TickStats{}
	}
	s.metrics.ScheduledGuilds.Set(float64(len(schedules)))

	var due, notified, failed atomic.Int32

	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}

	for _, sched := range schedules {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			result, err := s.runGuild(ctx, sched, now)
			if err != nil {
				failed.Add(1)
				s.logFailure(sched, err)
				return nil
			}
			if result.Due {
				due.Add(1)
			}
			if result.Notified {
				notified.Add(1)
			}
			return nil
		})
	}

	_ = g.Wait()

	stats := TickStats{
		Guilds:   len(schedules),
		Due:      int(due.Load()),
		Notified: int(notified.Load()),
		Failed:   int(failed.Load()),
	}
	s.logger.Debug("tick completed",
		"now", now,
		"guilds", stats.Guilds,
		"due", stats.Due,
		"notified", stats.Notified,
		"failed", stats.Failed,
	)

	return stats
}

func (s *Scheduler) runGuild(ctx context.Context, sched domain.Schedule, now time.Time) (result *domain.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in guild cycle: %v\n%s", r, debug.Stack())
		}
	}()

	if s.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.taskTimeout)
		defer cancel()
	}

	result, err = s.checker.CheckGuild(ctx, sched, now)
	if err == nil && result == nil {
		result = &domain.CheckResult{GuildID: sched.GuildID}
	}
	return result, err
}

func (s *Scheduler) logFailure(sched domain.Schedule, err error) {
	logger := s.logger.With("guild_id", sched.GuildID)

	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		logger.Warn("skipping guild with invalid schedule",
			"check_time", sched.CheckTime,
			"timezone", sched.Timezone,
			"error", err,
		)
		return
	}

	logger.Error("guild cycle failed", "error", err)
}
