package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"video_notifier/internal/domain"
)

const embedColor = 0xFF0000

// MessageSender is the part of *discordgo.Session the notifier needs.
type MessageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts new videos as embeds to a Discord text channel.
type Notifier struct {
	sender  MessageSender
	timeout time.Duration
	logger  *slog.Logger
}

// NewSession opens a REST-only bot session. No gateway connection is made.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.ShouldRetryOnRateLimit = false
	return session, nil
}

func New(sender MessageSender, timeout time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:  sender,
		timeout: timeout,
		logger:  logger.With("notifier", "discord"),
	}
}

// Notify posts the video to the channel destinationID.
func (n *Notifier) Notify(ctx context.Context, destinationID string, video *domain.Video) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	msg, err := n.sender.ChannelMessageSendEmbed(destinationID, Embed(video), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send embed to channel %s: %w", destinationID, classify(err))
	}

	n.logger.Debug("embed sent", "channel_id", destinationID, "message_id", msg.ID, "video_id", video.ID)
	return nil
}

// Embed renders the video's title, link and publish time.
func Embed(video *domain.Video) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: video.Title,
		URL:   video.URL,
		Color: embedColor,
	}

	if !video.PublishedAt.IsZero() {
		embed.Fields = []*discordgo.MessageEmbedField{{
			Name:   "Published",
			Value:  video.PublishedAt.UTC().Format(time.RFC3339),
			Inline: true,
		}}
		embed.Timestamp = video.PublishedAt.UTC().Format(time.RFC3339)
	}

	return embed
}

func classify(err error) error {
	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
		return fmt.Errorf("%w: %w", domain.ErrDestinationNotFound, err)
	}
	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrDestinationNotFound, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	return err
}
