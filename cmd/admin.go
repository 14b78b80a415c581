package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/domain/model"
	"github.com/mployhr/recruitdash/internal/domain/team"
	"github.com/mployhr/recruitdash/internal/domain/types"
	"github.com/mployhr/recruitdash/internal/gateway"
	"github.com/mployhr/recruitdash/pkg/logger"
)

const loadTimeout = 15 * time.Second

func newLeaderboardCmd() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the weekly leaderboard from the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			rt, err := bootstrap(ctx, cfg, logger.Get())
			if err != nil {
				return err
			}
			defer func() { _ = rt.close(context.Background()) }()

			snap, err := rt.gateway.Fetch(ctx, gateway.TopicKPI)
			if err != nil {
				return fmt.Errorf("fetch leaderboard: %w", err)
			}
			entries, err := leaderboardFromSnapshot(snap, cfg.Team)
			if err != nil {
				return err
			}
			if limit > 0 && limit < len(entries) {
				entries = entries[:limit]
			}
			return printLeaderboard(cmd.OutOrStdout(), entries, asJSON)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the top n members")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// leaderboardFromSnapshot ranks a stored KPI document; a missing document
// ranks the default roster.
func leaderboardFromSnapshot(snap gateway.Snapshot, roster []string) ([]types.Entry, error) {
	m := team.New(roster)
	if snap.Exists {
		var doc model.KPIDocument
		if err := snap.Decode(&doc); err != nil {
			return nil, err
		}
		m.ReplaceKPI(doc)
	}
	return types.NewLeaderboard(m.Current()), nil
}

func printLeaderboard(w io.Writer, entries []types.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		mark := ""
		if e.Podium {
			mark = "*"
		}
		fmt.Fprintf(tw, "#%d\t%s\t%d%%\t%s\n", e.Rank, e.Name, e.Display, mark)
	}
	return tw.Flush()
}

func newRollOverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Start a new week: copy the current week to the previous week and zero it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := setup(ctx)
			if err != nil {
				return err
			}
			log := logger.Get()
			rt, err := bootstrap(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
				defer cancel()
				if err := rt.close(shutdownCtx); err != nil {
					log.Error(ctx, "rollover write may be incomplete", logger.Error(err))
				}
			}()

			if err := rt.service.Start(ctx); err != nil {
				return err
			}
			if err := waitLoaded(ctx, rt.service, loadTimeout); err != nil {
				return err
			}
			if err := rt.service.RollOver(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "week rolled over")
			return nil
		},
	}
}

// waitLoaded blocks until both topics delivered their first snapshot.
func waitLoaded(ctx context.Context, svc *service.Service, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		st := svc.State()
		if st.Error != "" {
			return fmt.Errorf("dashboard: %s", st.Error)
		}
		if !st.Loading {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for dashboard data: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
