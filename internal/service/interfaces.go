package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"video_notifier/internal/domain"
)

type ConfigStore interface {
	Get(ctx context.Context, guildID int64) (*domain.GuildConfig, error)
	Upsert(ctx context.Context, cfg *domain.GuildConfig) error
	Delete(ctx context.Context, guildID int64) (bool, error)
}

type ScheduleStore interface {
	Get(ctx context.Context, guildID int64) (*domain.Schedule, error)
	Upsert(ctx context.Context, schedule *domain.Schedule) error
	Delete(ctx context.Context, guildID int64) (bool, error)
	List(ctx context.Context) ([]domain.Schedule, error)
}

type CheckpointStore interface {
	Read(ctx context.Context, guildID int64) (*domain.Checkpoint, error)
	AdvanceCheck(ctx context.Context, guildID int64, slot, at time.Time) (bool, error)
	SetLastVideoID(ctx context.Context, guildID int64, previousID, videoID string) (bool, error)
}

// Source lists a channel's newest videos, newest first.
type Source interface {
	Name() string
	LatestVideos(ctx context.Context, channelID string, max int) ([]domain.Video, error)
}

// ChannelDescriber returns operator-facing details of a source channel.
type ChannelDescriber interface {
	ChannelInfo(ctx context.Context, channelID string) (*domain.Channel, error)
}

type Notifier interface {
	Notify(ctx context.Context, destinationID string, video *domain.Video) error
}

type Publisher interface {
	Publish(ctx context.Context, guildID int64, video *domain.Video) error
	Close() error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
