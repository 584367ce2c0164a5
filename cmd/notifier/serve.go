package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"video_notifier/internal/metrics"
	"video_notifier/internal/publisher"
	"video_notifier/internal/scheduler"
	"video_notifier/internal/server"
	"video_notifier/internal/service"
	"video_notifier/internal/storage/sqldb"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the polling engine and the ops HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	db, err := a.openDB(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return err
	}
	defer db.Close()

	if err := sqldb.Migrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		return err
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Optional event stream
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			return err
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	// Initialize stores
	configStore := sqldb.NewConfigStore(db)
	scheduleStore := sqldb.NewScheduleStore(db)
	checkpointStore := sqldb.NewCheckpointStore(db)

	// Initialize adapters
	source, err := a.newSource(ctx)
	if err != nil {
		logger.Error("failed to create source", "error", err)
		return err
	}
	notifier, err := a.newNotifier()
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		return err
	}

	detector := service.NewDetector(source, cfg.Source.MaxResults, m, logger)
	checker := service.NewCheckService(configStore, checkpointStore, detector, notifier, pub, m, logger)
	sched := scheduler.NewScheduler(checker, scheduleStore, cfg.Scheduler, m, logger)
	opsServer := server.New(cfg.HTTP.Addr, db, reg, logger)

	logger.Info("starting video notifier",
		"source", source.Name(),
		"notifier", cfg.Notifier.Kind,
		"interval", cfg.Scheduler.Interval,
		"events", cfg.RabbitMQ.Enabled,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return opsServer.Run(gctx)
	})
	g.Go(func() error {
		if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("notifier stopped with error", "error", err)
		return err
	}

	logger.Info("notifier stopped")
	return nil
}
