package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/slack-go/slack"

	"video_notifier/internal/config"
	"video_notifier/internal/metrics"
	discordnotifier "video_notifier/internal/notifier/discord"
	slacknotifier "video_notifier/internal/notifier/slack"
	"video_notifier/internal/service"
	"video_notifier/internal/source/feed"
	"video_notifier/internal/source/youtube"
	"video_notifier/internal/storage/sqldb"
)

// channelSource lists videos and describes channels.
type channelSource interface {
	service.Source
	service.ChannelDescriber
}

func (a *app) openDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqldb.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, err
	}
	a.logger.Info("connected to database", "driver", a.cfg.Database.Driver)
	return db, nil
}

func (a *app) newSource(ctx context.Context) (channelSource, error) {
	switch a.cfg.Source.Kind {
	case config.SourceFeed:
		return feed.New(a.cfg.Source, a.logger), nil
	case config.SourceYouTube:
		source, err := youtube.New(ctx, a.cfg.Source, a.logger)
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unsupported source kind %q", a.cfg.Source.Kind)
	}
}

func (a *app) newNotifier() (service.Notifier, error) {
	switch a.cfg.Notifier.Kind {
	case config.NotifierSlack:
		client := slack.New(a.cfg.Notifier.SlackToken)
		return slacknotifier.New(client, a.cfg.Notifier.Timeout, a.logger), nil
	case config.NotifierDiscord:
		session, err := discordnotifier.NewSession(a.cfg.Notifier.DiscordToken)
		if err != nil {
			return nil, err
		}
		return discordnotifier.New(session, a.cfg.Notifier.Timeout, a.logger), nil
	default:
		return nil, fmt.Errorf("unsupported notifier kind %q", a.cfg.Notifier.Kind)
	}
}

func (a *app) newAdmin(db *sqlx.DB, source service.ChannelDescriber) *service.AdminService {
	return service.NewAdminService(
		sqldb.NewConfigStore(db),
		sqldb.NewScheduleStore(db),
		source,
		sqldb.NewTransactionManager(db),
		a.logger,
	)
}

// newDiscardMetrics returns metrics bound to a private registry for one-shot commands.
func newDiscardMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}
