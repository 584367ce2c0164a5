package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"

	"video_notifier/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	logFile    io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "notifier",
		Short:        "Posts a channel's newest video to each guild once per day at its scheduled time",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newGuildCmd(a),
	)

	return root
}

func (a *app) load() error {
	// Setup logger
	a.logger = newLogger("info", os.Stdout)

	// Load configuration
	cfg, err := config.Load(a.configPath)
	if err != nil {
		a.logger.Error("failed to load config", "error", err)
		return err
	}
	a.cfg = cfg

	logger, closer, err := setupLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		a.logger.Error("failed to open log file", "path", cfg.LogFile, "error", err)
		return err
	}
	a.logger = logger
	a.logFile = closer

	return nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// setupLogger logs JSON to stdout and, when logFile is set, text to the file as well.
func setupLogger(level, logFile string) (*slog.Logger, io.Closer, error) {
	if logFile == "" {
		return newLogger(level, os.Stdout), nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slogmulti.Fanout(
		slog.NewJSONHandler(os.Stdout, opts),
		slog.NewTextHandler(f, opts),
	)

	return slog.New(handler), f, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	handler := slog.NewJSONHandler(w, opts)
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
