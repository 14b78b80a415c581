package main

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/mployhr/recruitdash/internal/editsim"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	if err := newCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	cfg := &editsim.Config{}
	var (
		logFile   string
		logFormat string
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "edit-sim",
		Short: "Drive a running dashboard with random edits and verify its leaderboard",
		Example: `  edit-sim --url http://localhost:9080 --edits 500 --workers 4
  edit-sim --edits 50 --strict`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closer, err := editsim.SetupLogging(logFile, logFormat)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			_, err = editsim.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.NumEdits, "edits", editsim.DefaultNumEdits, "number of edits to generate and submit")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", editsim.DefaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", editsim.DefaultSettle, "wait after the last edit before reading back")
	f.Float64Var(&cfg.NonNumeric, "junk", editsim.DefaultNonNumeric, "share of edits sent as non-numeric text")
	f.Float64Var(&cfg.StarterMix, "starters", editsim.DefaultStarterMix, "share of edits aimed at the new-starter dataset")
	f.StringVar(&cfg.OutputFile, "output", "", "write the generated edits to this JSON file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every failed request")
	f.BoolVar(&cfg.StrictFinal, "strict", false, "fail when a field does not hold its last edit")
	f.StringVar(&logFile, "log", "", "log file (default: edit_sim_TIMESTAMP.log)")
	f.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	f.DurationVar(&timeout, "run-timeout", defaultRunTimeout, "overall run timeout")
	return cmd
}
