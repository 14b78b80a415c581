package editsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mployhr/recruitdash/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON fetches url and decodes a 200 response into v.
func (c *HTTPClient) getJSON(ctx context.Context, url string, v any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: %w", url, err)
	}
	return nil
}

type submitResult int

const (
	resultCommitted submitResult = iota
	resultRejected
	resultFailed
)

func editURL(base, dataset string) string {
	return base + "/api/" + dataset + "/edit"
}

// submitEdits posts edits through config.Workers workers. All edits of a
// member go through one worker so they reach the server in order.
func submitEdits(ctx context.Context, config *Config, edits []Edit, stats *Stats) {
	log := logger.Get()
	log.Info(ctx, "submitting edits", logger.Int("edits", len(edits)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	var committed, rejected, failed, submitted int64

	var wg sync.WaitGroup
	for _, batch := range partition(edits, config.Workers) {
		wg.Add(1)
		go func(batch []Edit) {
			defer wg.Done()
			for _, e := range batch {
				if ctx.Err() != nil {
					return
				}
				atomic.AddInt64(&submitted, 1)
				switch submitSingleEdit(ctx, client, config, e) {
				case resultCommitted:
					atomic.AddInt64(&committed, 1)
				case resultRejected:
					atomic.AddInt64(&rejected, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}(batch)
	}
	wg.Wait()

	stats.EditsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EditsCommitted = int(atomic.LoadInt64(&committed))
	stats.EditsRejected = int(atomic.LoadInt64(&rejected))
	stats.EditsFailed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "edit submission completed",
		logger.Int("committed", stats.EditsCommitted),
		logger.Int("rejected", stats.EditsRejected),
		logger.Int("failed", stats.EditsFailed))
}

func submitSingleEdit(ctx context.Context, client *HTTPClient, config *Config, e Edit) submitResult {
	resp, err := client.Post(ctx, editURL(config.BaseURL, e.Dataset), e)
	if err != nil {
		if config.Verbose {
			logger.Get().Warn(ctx, "edit request failed", logger.String("name", e.Name), logger.Error(err))
		}
		return resultFailed
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		var ack AckResponse
		if err := json.NewDecoder(resp.Body).Decode(&ack); err == nil && ack.Status != "committed" {
			return resultFailed
		}
		return resultCommitted
	case http.StatusBadRequest, http.StatusNotFound:
		return resultRejected
	default:
		if config.Verbose {
			logger.Get().Warn(ctx, "edit refused", logger.String("name", e.Name), logger.Int("status", resp.StatusCode))
		}
		return resultFailed
	}
}

func fetchCards(ctx context.Context, client *HTTPClient, base string) ([]Card, error) {
	var cards []Card
	if err := client.getJSON(ctx, base+"/api/kpi", &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func fetchLeaderboard(ctx context.Context, client *HTTPClient, base string) ([]Entry, error) {
	var entries []Entry
	if err := client.getJSON(ctx, base+"/api/leaderboard", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// retrieveRanks looks every member up individually.
func retrieveRanks(ctx context.Context, config *Config, names []string, stats *Stats) (map[string]Entry, error) {
	client := newHTTPClient(config.Timeout)
	out := make(map[string]Entry, len(names))
	for _, name := range names {
		var e Entry
		if err := client.getJSON(ctx, config.BaseURL+"/api/leaderboard/"+url.PathEscape(name), &e); err != nil {
			return nil, fmt.Errorf("rank of %s: %w", name, err)
		}
		out[name] = e
		stats.RanksRetrieved++
	}
	return out, nil
}
