package service

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"video_notifier/internal/domain"
	"video_notifier/internal/metrics"
)

// Detector decides whether a channel's newest video was already seen.
type Detector struct {
	source     Source
	maxResults int
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewDetector(source Source, maxResults int, m *metrics.Metrics, logger *slog.Logger) *Detector {
	return &Detector{
		source:     source,
		maxResults: maxResults,
		metrics:    m,
		logger:     logger.With("source", source.Name()),
	}
}

// Detect returns the channel's newest video when its id differs from lastVideoID.
// Fetch failures are logged and reported as nothing new.
func (d *Detector) Detect(ctx context.Context, channelID, lastVideoID string) (*domain.Video, bool) {
	videos, err := d.source.LatestVideos(ctx, channelID, d.maxResults)
	if err != nil {
		d.metrics.FetchFailures.Inc()
		d.logger.Warn("fetch latest videos failed",
			"channel_id", channelID,
			"error", err,
		)
		return nil, false
	}

	latest, ok := lo.First(videos)
	if !ok || latest.ID == "" {
		d.logger.Debug("no videos listed", "channel_id", channelID)
		return nil, false
	}

	if latest.ID == lastVideoID {
		d.logger.Debug("newest video already seen",
			"channel_id", channelID,
			"video_id", latest.ID,
		)
		return nil, false
	}

	return &latest, true
}
