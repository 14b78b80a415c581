package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/mployhr/recruitdash/internal/config"
	"github.com/mployhr/recruitdash/pkg/logger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recruitdash",
		Short:         "MPloyHR recruitment dashboard",
		Long:          `Serves the weekly KPI and monthly new-starter dashboard and its JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
	}
	root.AddCommand(newServeCmd(), newLeaderboardCmd(), newRollOverCmd())
	return root
}

// setup loads configuration and initialises the global logger from it.
// Configuration errors are fatal and reported on stderr.
func setup(ctx context.Context) (*config.Config, error) {
	// Initialize logging with defaults so config errors can be logged
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return nil, err
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return nil, err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return nil, err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
