package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"video_notifier/internal/domain"
	"video_notifier/internal/schedule"
)

// AdminService backs the operator commands that manage guild configuration.
type AdminService struct {
	configs   ConfigStore
	schedules ScheduleStore
	channels  ChannelDescriber
	txManager TransactionManager
	logger    *slog.Logger
}

func NewAdminService(
	configs ConfigStore,
	schedules ScheduleStore,
	channels ChannelDescriber,
	txManager TransactionManager,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		configs:   configs,
		schedules: schedules,
		channels:  channels,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *AdminService) SetSourceChannel(ctx context.Context, guildID int64, channelID string) error {
	channelID, err := cleanID("source_channel_id", channelID)
	if err != nil {
		return err
	}

	if err := s.configs.Upsert(ctx, &domain.GuildConfig{GuildID: guildID, SourceChannelID: &channelID}); err != nil {
		return fmt.Errorf("save source channel: %w", err)
	}

	s.logger.Info("source channel set", "guild_id", guildID, "channel_id", channelID)
	return nil
}

// SetDestination requires the source channel to be configured first.
func (s *AdminService) SetDestination(ctx context.Context, guildID int64, destinationID string) error {
	destinationID, err := cleanID("destination_id", destinationID)
	if err != nil {
		return err
	}

	existing, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load guild config: %w", err)
	}
	if existing == nil || existing.SourceChannelID == nil {
		return domain.ErrSourceNotConfigured
	}

	if err := s.configs.Upsert(ctx, &domain.GuildConfig{GuildID: guildID, DestinationID: &destinationID}); err != nil {
		return fmt.Errorf("save destination: %w", err)
	}

	s.logger.Info("destination set", "guild_id", guildID, "destination_id", destinationID)
	return nil
}

// SetSchedule validates and stores the guild's daily check time.
func (s *AdminService) SetSchedule(ctx context.Context, guildID int64, checkTime, timezone string) (*domain.Schedule, error) {
	setting, err := schedule.Parse(checkTime, timezone)
	if err != nil {
		return nil, err
	}

	sched := &domain.Schedule{
		GuildID:   guildID,
		CheckTime: setting.CheckTime.String(),
		Timezone:  setting.Timezone(),
	}
	if err := s.schedules.Upsert(ctx, sched); err != nil {
		return nil, fmt.Errorf("save schedule: %w", err)
	}

	s.logger.Info("schedule set", "guild_id", guildID, "check_time", sched.CheckTime, "timezone", sched.Timezone)
	return sched, nil
}

func (s *AdminService) RemoveSchedule(ctx context.Context, guildID int64) (bool, error) {
	removed, err := s.schedules.Delete(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	return removed, nil
}

// Schedule returns nil when the guild has no schedule.
func (s *AdminService) Schedule(ctx context.Context, guildID int64) (*domain.Schedule, error) {
	return s.schedules.Get(ctx, guildID)
}

// Config returns nil when the guild was never configured.
func (s *AdminService) Config(ctx context.Context, guildID int64) (*domain.GuildConfig, error) {
	return s.configs.Get(ctx, guildID)
}

// ChannelInfo describes the guild's configured source channel.
func (s *AdminService) ChannelInfo(ctx context.Context, guildID int64) (*domain.Channel, error) {
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load guild config: %w", err)
	}
	if cfg == nil || cfg.SourceChannelID == nil {
		return nil, domain.ErrSourceNotConfigured
	}

	info, err := s.channels.ChannelInfo(ctx, *cfg.SourceChannelID)
	if err != nil {
		return nil, fmt.Errorf("describe channel: %w", err)
	}
	return info, nil
}

// RemoveGuild deletes configuration and schedule together and reports whether anything existed.
func (s *AdminService) RemoveGuild(ctx context.Context, guildID int64) (bool, error) {
	var removed bool

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		removedConfig, err := s.configs.Delete(txCtx, guildID)
		if err != nil {
			return fmt.Errorf("delete config: %w", err)
		}

		removedSchedule, err := s.schedules.Delete(txCtx, guildID)
		if err != nil {
			return fmt.Errorf("delete schedule: %w", err)
		}

		removed = removedConfig || removedSchedule
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("guild removed", "guild_id", guildID, "existed", removed)
	return removed, nil
}

func cleanID(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, " \t\n") {
		return "", &domain.ConfigError{Field: field, Value: value, Err: errors.New("must be a single non-empty identifier")}
	}
	return value, nil
}
