package testmatches

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LuSo58/billboards-evaluation/internal/domain/types"
)

// Submission outcomes.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeFailed    = "failed"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
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
		return fmt.Errorf("request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitMatches posts matches concurrently and returns the match IDs the
// service accepted.
func submitMatches(ctx context.Context, config *Config, matches []Match, stats *Stats) []string {
	log.Printf("📤 Submitting %d matches with %d workers...", len(matches), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/matches"

	var (
		accepted  int64
		duplicate int64
		failed    int64
		mu        sync.Mutex
		ids       []string
	)

	jobs := make(chan Match, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				if ctx.Err() != nil {
					return
				}
				outcome, ack := submitSingleMatch(ctx, client, url, m.Submission)
				switch outcome {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
					mu.Lock()
					ids = append(ids, ack.MatchID)
					mu.Unlock()
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, m := range matches {
			select {
			case <-ctx.Done():
				return
			case jobs <- m:
			}
		}
	}()
	wg.Wait()

	stats.MatchesAccepted = int(atomic.LoadInt64(&accepted))
	stats.MatchesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.MatchesFailed = int(atomic.LoadInt64(&failed))
	stats.MatchesSubmitted = stats.MatchesAccepted + stats.MatchesDuplicate + stats.MatchesFailed

	log.Printf(`✅ Match submission completed:
   Accepted: %d
   Duplicate: %d
   Failed: %d
`, stats.MatchesAccepted, stats.MatchesDuplicate, stats.MatchesFailed)

	return ids
}

// submitSingleMatch submits one match and classifies the response.
func submitSingleMatch(ctx context.Context, client *HTTPClient, url string, sub types.Submission) (string, types.Ack) {
	resp, err := client.Post(ctx, url, sub)
	if err != nil {
		return outcomeFailed, types.Ack{}
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return outcomeFailed, types.Ack{}
	}

	var ack types.Ack
	_ = json.Unmarshal(body, &ack)
	switch resp.StatusCode {
	case StatusAccepted:
		return outcomeAccepted, ack
	case StatusOK:
		return outcomeDuplicate, ack
	default:
		return outcomeFailed, ack
	}
}

// waitForMatches polls each accepted match until it leaves the pending state.
func waitForMatches(ctx context.Context, config *Config, ids []string, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	pending := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for len(pending) > 0 {
		for id := range pending {
			var view types.MatchView
			if err := client.getJSON(ctx, config.BaseURL+"/matches/"+id, &view); err != nil {
				continue
			}
			switch view.Status {
			case "scored":
				stats.MatchesScored++
				delete(pending, id)
			case "failed":
				stats.MatchesRejected++
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d matches still pending: %w", len(pending), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
