package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"video_notifier/internal/config"
	"video_notifier/internal/domain"
	"video_notifier/internal/source"
)

const SourceName = "youtube"

// Source lists a channel's uploads through the YouTube Data API v3.
type Source struct {
	service *yt.Service
	timeout time.Duration
	retrier *source.Retrier
	logger  *slog.Logger
}

// New creates a YouTube source. cfg.BaseURL overrides the API endpoint.
func New(ctx context.Context, cfg config.SourceConfig, logger *slog.Logger) (*Source, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube client: %w", err)
	}

	logger = logger.With("source", SourceName)

	return &Source{
		service: service,
		timeout: cfg.Timeout,
		retrier: source.NewRetrier(cfg.Retry, logger),
		logger:  logger,
	}, nil
}

func (s *Source) Name() string {
	return SourceName
}

// LatestVideos returns up to maxResults of the channel's videos, newest first.
func (s *Source) LatestVideos(ctx context.Context, channelID string, maxResults int) ([]domain.Video, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := source.Do(ctx, s.retrier, func(ctx context.Context) (*yt.SearchListResponse, error) {
		resp, err := s.service.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Order("date").
			Type("video").
			MaxResults(int64(maxResults)).
			Context(ctx).
			Do()
		return resp, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("search channel %s: %w", channelID, err)
	}

	videos := make([]domain.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			s.logger.Warn("failed to parse publish date",
				"video_id", item.Id.VideoId,
				"published_at", item.Snippet.PublishedAt,
			)
		}

		videos = append(videos, domain.Video{
			ID:          item.Id.VideoId,
			ChannelID:   item.Snippet.ChannelId,
			Title:       item.Snippet.Title,
			URL:         domain.WatchURL(item.Id.VideoId),
			PublishedAt: publishedAt,
		})
	}

	return videos, nil
}

// ChannelInfo returns the channel's title, description, subscriber count and thumbnail.
func (s *Source) ChannelInfo(ctx context.Context, channelID string) (*domain.Channel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := source.Do(ctx, s.retrier, func(ctx context.Context) (*yt.ChannelListResponse, error) {
		resp, err := s.service.Channels.List([]string{"snippet", "statistics"}).
			Id(channelID).
			Context(ctx).
			Do()
		return resp, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("get channel %s: %w", channelID, err)
	}

	ch, ok := lo.First(resp.Items)
	if !ok || ch.Snippet == nil {
		return nil, domain.ErrChannelNotFound
	}

	info := &domain.Channel{
		ID:          ch.Id,
		Title:       ch.Snippet.Title,
		Description: ch.Snippet.Description,
	}
	if ch.Statistics != nil && !ch.Statistics.HiddenSubscriberCount {
		info.Subscribers = lo.ToPtr(ch.Statistics.SubscriberCount)
	}
	if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.High != nil {
		info.ThumbnailURL = ch.Snippet.Thumbnails.High.Url
	}

	return info, nil
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

var quotaReasons = []string{"quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded"}

// classify marks client errors as permanent. 429 is retried; an exhausted quota is not.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case apiErr.Code == http.StatusForbidden && lo.ContainsBy(apiErr.Errors, func(item googleapi.ErrorItem) bool {
		return lo.Contains(quotaReasons, item.Reason)
	}):
		return source.Permanent(fmt.Errorf("%w: %w", domain.ErrRateLimited, err))
	case apiErr.Code == http.StatusNotFound:
		return source.Permanent(fmt.Errorf("%w: %w", domain.ErrChannelNotFound, err))
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return source.Permanent(err)
	}

	return err
}
