package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"

	"video_notifier/internal/config"
	"video_notifier/internal/domain"
	"video_notifier/internal/source"
)

const SourceName = "feed"

// Source reads a channel's public Atom feed. It needs no API key.
type Source struct {
	parser  *gofeed.Parser
	baseURL string
	timeout time.Duration
	retrier *source.Retrier
	logger  *slog.Logger
}

func New(cfg config.SourceConfig, logger *slog.Logger) *Source {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	parser.UserAgent = "VideoNotifier/1.0"

	logger = logger.With("source", SourceName)

	return &Source{
		parser:  parser,
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		retrier: source.NewRetrier(cfg.Retry, logger),
		logger:  logger,
	}
}

func (s *Source) Name() string {
	return SourceName
}

// LatestVideos returns up to maxResults feed entries, newest first.
func (s *Source) LatestVideos(ctx context.Context, channelID string, maxResults int) ([]domain.Video, error) {
	feed, err := s.fetch(ctx, channelID)
	if err != nil {
		return nil, err
	}

	videos := make([]domain.Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := videoID(item)
		if id == "" {
			s.logger.Warn("feed entry without video id", "channel_id", channelID, "guid", item.GUID)
			continue
		}

		video := domain.Video{
			ID:        id,
			ChannelID: channelID,
			Title:     item.Title,
			URL:       lo.Ternary(item.Link != "", item.Link, domain.WatchURL(id)),
		}
		if item.PublishedParsed != nil {
			video.PublishedAt = item.PublishedParsed.UTC()
		}
		videos = append(videos, video)
	}

	slices.SortStableFunc(videos, func(a, b domain.Video) int {
		return cmp.Compare(b.PublishedAt.UnixNano(), a.PublishedAt.UnixNano())
	})

	if maxResults > 0 && len(videos) > maxResults {
		videos = videos[:maxResults]
	}

	return videos, nil
}

// ChannelInfo returns what the feed knows about the channel. Subscriber counts are not published.
func (s *Source) ChannelInfo(ctx context.Context, channelID string) (*domain.Channel, error) {
	feed, err := s.fetch(ctx, channelID)
	if err != nil {
		return nil, err
	}

	info := &domain.Channel{
		ID:          channelID,
		Title:       feed.Title,
		Description: feed.Description,
	}
	if feed.Image != nil {
		info.ThumbnailURL = feed.Image.URL
	}

	return info, nil
}

func (s *Source) fetch(ctx context.Context, channelID string) (*gofeed.Feed, error) {
	feedURL := s.baseURL + "?channel_id=" + url.QueryEscape(channelID)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	feed, err := source.Do(ctx, s.retrier, func(ctx context.Context) (*gofeed.Feed, error) {
		feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
		return feed, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed for channel %s: %w", channelID, err)
	}

	return feed, nil
}

func classify(err error) error {
	var httpErr gofeed.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	switch {
	case httpErr.StatusCode == http.StatusNotFound:
		return source.Permanent(fmt.Errorf("%w: %w", domain.ErrChannelNotFound, err))
	case httpErr.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return source.Permanent(err)
	}

	return err
}

// videoID prefers the yt:videoId extension and falls back to the "yt:video:" GUID.
func videoID(item *gofeed.Item) string {
	if exts, ok := item.Extensions["yt"]["videoId"]; ok && len(exts) > 0 && exts[0].Value != "" {
		return exts[0].Value
	}
	return strings.TrimPrefix(item.GUID, "yt:video:")
}
