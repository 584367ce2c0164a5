package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"video_notifier/internal/domain"
	"video_notifier/internal/service"
	"video_notifier/internal/storage/sqldb"
)

func newGuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Manage a guild's source channel, destination and schedule",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-channel <guild-id> <channel-id>",
			Short: "Set the YouTube channel to watch",
			Args:  cobra.ExactArgs(2),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, args []string) error {
				if err := admin.SetSourceChannel(ctx, guildID, args[0]); err != nil {
					return err
				}
				fmt.Fprintln(out, "YouTube channel set.")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set-destination <guild-id> <destination-id>",
			Short: "Set the channel new videos are posted to",
			Args:  cobra.ExactArgs(2),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, args []string) error {
				err := admin.SetDestination(ctx, guildID, args[0])
				if errors.Is(err, domain.ErrSourceNotConfigured) {
					return errors.New("set the YouTube channel first")
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Destination channel set.")
				return nil
			}),
		},
		&cobra.Command{
			Use:     "set-schedule <guild-id> <time> <timezone>",
			Short:   "Check once per day at time (\"9:30am\" or \"21:30\") in an IANA timezone",
			Example: "  notifier guild set-schedule 1234 9:00am America/Chicago",
			Args:    cobra.ExactArgs(3),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, args []string) error {
				sched, err := admin.SetSchedule(ctx, guildID, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Schedule set: %s %s\n", sched.CheckTime, sched.Timezone)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove-schedule <guild-id>",
			Short: "Stop scheduled checks",
			Args:  cobra.ExactArgs(1),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, _ []string) error {
				removed, err := admin.RemoveSchedule(ctx, guildID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, lo.Ternary(removed, "Schedule removed.", "No schedule set."))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "show <guild-id>",
			Short: "Show the guild's configuration and schedule",
			Args:  cobra.ExactArgs(1),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, _ []string) error {
				cfg, err := admin.Config(ctx, guildID)
				if err != nil {
					return err
				}
				sched, err := admin.Schedule(ctx, guildID)
				if err != nil {
					return err
				}
				printGuild(out, guildID, cfg, sched)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "info <guild-id>",
			Short: "Describe the watched YouTube channel",
			Args:  cobra.ExactArgs(1),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, _ []string) error {
				info, err := admin.ChannelInfo(ctx, guildID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n%s\n", info.Title, info.Description)
				if info.Subscribers != nil {
					fmt.Fprintf(out, "Subscribers: %d\n", *info.Subscribers)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove <guild-id>",
			Short: "Delete the guild's configuration and schedule",
			Args:  cobra.ExactArgs(1),
			RunE: a.adminCommand(func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, _ []string) error {
				removed, err := admin.RemoveGuild(ctx, guildID)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, lo.Ternary(removed, "Guild configuration removed.", "Nothing to remove."))
				return nil
			}),
		},
		newCheckCmd(a),
	)

	return cmd
}

type adminFunc func(ctx context.Context, out io.Writer, admin *service.AdminService, guildID int64, args []string) error

// adminCommand opens the store, parses the leading guild id and hands the rest of args to fn.
func (a *app) adminCommand(fn adminFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		guildID, err := parseGuildID(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		db, err := a.openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		source, err := a.newSource(ctx)
		if err != nil {
			return err
		}

		return fn(ctx, cmd.OutOrStdout(), a.newAdmin(db, source), guildID, args[1:])
	}
}

// newCheckCmd runs detection immediately, outside the schedule.
func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <guild-id>",
		Short: "Check for a new video now and post it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guildID, err := parseGuildID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			source, err := a.newSource(ctx)
			if err != nil {
				return err
			}
			notifier, err := a.newNotifier()
			if err != nil {
				return err
			}

			m := newDiscardMetrics()
			detector := service.NewDetector(source, a.cfg.Source.MaxResults, m, a.logger)
			checker := service.NewCheckService(
				sqldb.NewConfigStore(db),
				sqldb.NewCheckpointStore(db),
				detector,
				notifier,
				nil,
				m,
				a.logger,
			)

			result, err := checker.CheckNow(ctx, guildID)
			if errors.Is(err, domain.ErrGuildNotConfigured) {
				return errors.New("set both the YouTube channel and the destination first")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case result.Video == nil:
				fmt.Fprintln(out, "No new video.")
			case result.Notified:
				fmt.Fprintf(out, "Posted %s\n", result.Video.URL)
			default:
				fmt.Fprintf(out, "Found %s but posting failed: %v\n", result.Video.URL, result.NotifyErr)
			}
			return nil
		},
	}
}

func parseGuildID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid guild id %q", value)
	}
	return id, nil
}

func printGuild(out io.Writer, guildID int64, cfg *domain.GuildConfig, sched *domain.Schedule) {
	fmt.Fprintf(out, "Guild %d\n", guildID)

	value := func(p *string) string {
		return lo.Ternary(p != nil && *p != "", lo.FromPtr(p), "(not set)")
	}

	if cfg == nil {
		cfg = &domain.GuildConfig{}
	}
	fmt.Fprintf(out, "  YouTube channel: %s\n", value(cfg.SourceChannelID))
	fmt.Fprintf(out, "  Destination:     %s\n", value(cfg.DestinationID))
	fmt.Fprintf(out, "  Last video:      %s\n", value(cfg.LastVideoID))

	if sched == nil {
		fmt.Fprintln(out, "  Schedule:        (none)")
		return
	}
	fmt.Fprintf(out, "  Schedule:        %s %s\n", sched.CheckTime, sched.Timezone)
}
