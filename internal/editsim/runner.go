package editsim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mployhr/recruitdash/pkg/logger"
)

// Run executes a complete simulation against config.BaseURL.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting edit simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("edits", config.NumEdits),
		logger.Int("workers", config.Workers),
		logger.Duration("settle", config.Settle))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Wait for both datasets and read the roster
	roster, err := waitForRoster(ctx, client, config)
	if err != nil {
		return stats, fmt.Errorf("reading roster failed: %w", err)
	}

	// Step 3: Generate edits
	edits, err := generateEdits(ctx, config, roster, stats)
	if err != nil {
		return stats, fmt.Errorf("edit generation failed: %w", err)
	}

	// Step 4: Submit edits
	submitEdits(ctx, config, edits, stats)

	// Step 5: Let the last writes come back as snapshots
	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(config.Settle):
	}

	// Step 6: Read everything back
	cards, err := fetchCards(ctx, client, config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("card retrieval failed: %w", err)
	}
	leaderboard, err := fetchLeaderboard(ctx, client, config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(leaderboard)
	ranks, err := retrieveRanks(ctx, config, roster, stats)
	if err != nil {
		return stats, fmt.Errorf("rank retrieval failed: %w", err)
	}

	// Step 7: Verify
	if err := verifyResults(ctx, config, edits, cards, leaderboard, ranks, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 8: Save edits to file
	if config.OutputFile != "" {
		if err := saveEditsToFile(ctx, config.OutputFile, edits); err != nil {
			log.Warn(ctx, "failed to save edits to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

type stateResponse struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

// waitForRoster polls /api/state until loading ends, then reads the names
// off the KPI cards.
func waitForRoster(ctx context.Context, client *HTTPClient, config *Config) ([]string, error) {
	for {
		var st stateResponse
		if err := client.getJSON(ctx, config.BaseURL+"/api/state", &st); err != nil {
			return nil, err
		}
		if st.Error != "" {
			return nil, fmt.Errorf("dashboard error: %s", st.Error)
		}
		if !st.Loading {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	cards, err := fetchCards(ctx, client, config.BaseURL)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	return names, nil
}

func saveEditsToFile(ctx context.Context, filename string, edits []Edit) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	type savedEdit struct {
		Dataset string `json:"dataset"`
		Edit
	}
	out := make([]savedEdit, len(edits))
	for i, e := range edits {
		out[i] = savedEdit{Dataset: e.Dataset, Edit: e}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal edits: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "edits saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var commitRate, editsPerSecond float64
	if stats.EditsSubmitted > 0 {
		commitRate = float64(stats.EditsCommitted) / float64(stats.EditsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		editsPerSecond = float64(stats.EditsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("editsGenerated", stats.EditsGenerated),
		logger.Int("editsSubmitted", stats.EditsSubmitted),
		logger.Int("editsCommitted", stats.EditsCommitted),
		logger.Int("editsRejected", stats.EditsRejected),
		logger.Int("editsFailed", stats.EditsFailed),
		logger.Int("editsOverwritten", stats.EditsOverwritten),
		logger.Int("ranksRetrieved", stats.RanksRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("commitRate", commitRate),
		logger.Float64("editsPerSecond", editsPerSecond))
}
