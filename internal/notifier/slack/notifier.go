package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/slack-go/slack"

	"video_notifier/internal/domain"
)

var missingDestination = []string{"channel_not_found", "not_in_channel", "is_archived", "channel_is_archived"}

// MessagePoster is the part of *slack.Client the notifier needs.
type MessagePoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier posts new videos to a Slack channel.
type Notifier struct {
	poster  MessagePoster
	timeout time.Duration
	logger  *slog.Logger
}

func New(poster MessagePoster, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		poster:  poster,
		timeout: timeout,
		logger:  logger.With("notifier", "slack"),
	}
}

func (n *Notifier) Notify(ctx context.Context, destinationID string, video *domain.Video) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	channel, ts, err := n.poster.PostMessageContext(ctx, destinationID,
		slack.MsgOptionText(fallbackText(video), false),
		slack.MsgOptionBlocks(Blocks(video)...),
		slack.MsgOptionAsUser(false),
	)
	if err != nil {
		return fmt.Errorf("post message to channel %s: %w", destinationID, classify(err))
	}

	n.logger.Debug("message posted", "channel_id", channel, "ts", ts, "video_id", video.ID)
	return nil
}

// Blocks renders the video as a linked title with its publish time.
func Blocks(video *domain.Video) []slack.Block {
	title := slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*<%s|%s>*", video.URL, video.Title), false, false)
	blocks := []slack.Block{slack.NewSectionBlock(title, nil, nil)}

	if !video.PublishedAt.IsZero() {
		published := slack.NewTextBlockObject(slack.MarkdownType, "Published "+video.PublishedAt.UTC().Format(time.RFC3339), false, false)
		blocks = append(blocks, slack.NewContextBlock("", published))
	}

	return blocks
}

func fallbackText(video *domain.Video) string {
	return fmt.Sprintf("New video: %s %s", video.Title, video.URL)
}

func classify(err error) error {
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) && lo.Contains(missingDestination, slackErr.Err) {
		return fmt.Errorf("%w: %w", domain.ErrDestinationNotFound, err)
	}

	return err
}
