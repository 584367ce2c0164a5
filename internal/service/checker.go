package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"video_notifier/internal/domain"
	"video_notifier/internal/metrics"
	"video_notifier/internal/schedule"
)

// CheckService runs one guild's check cycle:
// evaluate, advance checkpoint, detect, record, notify.
type CheckService struct {
	configs     ConfigStore
	checkpoints CheckpointStore
	detector    *Detector
	notifier    Notifier
	publisher   Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	locks       *guildLocks
}

// NewCheckService builds the cycle runner. publisher may be nil.
func NewCheckService(
	configs ConfigStore,
	checkpoints CheckpointStore,
	detector *Detector,
	notifier Notifier,
	publisher Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CheckService {
	return &CheckService{
		configs:     configs,
		checkpoints: checkpoints,
		detector:    detector,
		notifier:    notifier,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		locks:       newGuildLocks(),
	}
}

// CheckGuild evaluates the guild's schedule at now and, when due, runs detection.
// The check instant is persisted before any side effect; a guild whose slot was
// already claimed is left untouched.
func (s *CheckService) CheckGuild(ctx context.Context, sched domain.Schedule, now time.Time) (*domain.CheckResult, error) {
	unlock := s.locks.lock(sched.GuildID)
	defer unlock()

	start := time.Now()
	result := &domain.CheckResult{GuildID: sched.GuildID}
	defer func() {
		result.Duration = time.Since(start)
		s.metrics.CycleDuration.Observe(result.Duration.Seconds())
	}()

	logger := s.logger.With("guild_id", sched.GuildID)

	cp, err := s.checkpoints.Read(ctx, sched.GuildID)
	if err != nil {
		s.metrics.StoreFaults.Inc()
		return result, fmt.Errorf("read checkpoint: %w", err)
	}

	due, slot, err := schedule.IsDue(sched, cp.LastCheck, now)
	if err != nil {
		s.metrics.ConfigFaults.Inc()
		return result, fmt.Errorf("evaluate schedule: %w", err)
	}

	result.Due = due
	result.Slot = slot
	if !due {
		return result, nil
	}

	claimed, err := s.checkpoints.AdvanceCheck(ctx, sched.GuildID, slot, now)
	if err != nil {
		s.metrics.StoreFaults.Inc()
		return result, fmt.Errorf("advance checkpoint: %w", err)
	}
	if !claimed {
		logger.Info("slot already claimed or schedule removed", "slot", slot)
		return result, nil
	}

	result.Claimed = true
	s.metrics.DueChecks.Inc()
	logger.Info("scheduled check due", "slot", slot, "last_check", cp.LastCheck)

	cfg, err := s.configs.Get(ctx, sched.GuildID)
	if err != nil {
		s.metrics.StoreFaults.Inc()
		return result, fmt.Errorf("load guild config: %w", err)
	}
	if !cfg.Ready() {
		logger.Info("guild has no source channel or destination, skipping detection")
		return result, nil
	}

	return result, s.detectAndNotify(ctx, logger, cfg, cp.LastVideoID, result)
}

// CheckNow runs detection for a guild outside its schedule. The check instant is not touched.
func (s *CheckService) CheckNow(ctx context.Context, guildID int64) (*domain.CheckResult, error) {
	unlock := s.locks.lock(guildID)
	defer unlock()

	result := &domain.CheckResult{GuildID: guildID}

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load guild config: %w", err)
	}
	if !cfg.Ready() {
		return nil, domain.ErrGuildNotConfigured
	}

	cp, err := s.checkpoints.Read(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	logger := s.logger.With("guild_id", guildID, "trigger", "manual")

	return result, s.detectAndNotify(ctx, logger, cfg, cp.LastVideoID, result)
}

func (s *CheckService) detectAndNotify(
	ctx context.Context,
	logger *slog.Logger,
	cfg *domain.GuildConfig,
	lastVideoID string,
	result *domain.CheckResult,
) error {
	video, found := s.detector.Detect(ctx, *cfg.SourceChannelID, lastVideoID)
	if !found {
		return nil
	}

	// Recorded before delivery: a video is posted at most once, a failed post is not retried.
	recorded, err := s.checkpoints.SetLastVideoID(ctx, cfg.GuildID, lastVideoID, video.ID)
	if err != nil {
		s.metrics.StoreFaults.Inc()
		return fmt.Errorf("record last video: %w", err)
	}
	if !recorded {
		logger.Info("last video changed by another check, skipping notification", "video_id", video.ID)
		return nil
	}

	result.Video = video
	s.metrics.NewVideos.Inc()

	if err := s.notifier.Notify(ctx, *cfg.DestinationID, video); err != nil {
		s.metrics.NotificationFailed()
		result.NotifyErr = err
		logger.Error("notification failed",
			"video_id", video.ID,
			"destination_id", *cfg.DestinationID,
			"error", err,
		)
		return nil
	}

	result.Notified = true
	s.metrics.NotificationSent()
	logger.Info("new video posted",
		"video_id", video.ID,
		"title", video.Title,
		"destination_id", *cfg.DestinationID,
	)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, cfg.GuildID, video); err != nil {
			logger.Warn("publish video event failed", "video_id", video.ID, "error", err)
		}
	}

	return nil
}
