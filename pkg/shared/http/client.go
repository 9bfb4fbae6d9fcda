// Package http provides the bounded-timeout, bounded-retry HTTP client
// shared by the Search Client and the Evidence Verifier — the two
// components that issue raw HTTP requests against arbitrary third-party
// URLs rather than a typed SDK.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config controls the shared client's resilience knobs.
type Config struct {
	Timeout    time.Duration // per-attempt timeout
	MaxRetries int           // bounded retry count, not including the first attempt
	RetryWait  time.Duration
}

// DefaultConfig matches spec.md §5's 10s default for search/fetch calls.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second, MaxRetries: 2, RetryWait: 250 * time.Millisecond}
}

// Client wraps http.Client with a small bounded-retry policy. It never
// retries more than Config.MaxRetries times, matching the Search
// Client's contract in spec.md §4.1.
type Client struct {
	http *http.Client
	cfg  Config
}

func New(cfg Config) *Client {
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}
}

// Result is the outcome of a bounded-retry HTTP call.
type Result struct {
	StatusCode int
	Body       []byte
	FinalURL   string
	Attempts   int
}

// Get issues a GET against url with method HEAD first when headOnly is
// true (used for reachability checks), falling back to a real GET
// otherwise, retrying transient failures up to Config.MaxRetries times.
func (c *Client) Get(ctx context.Context, url string, headOnly bool) (Result, error) {
	method := http.MethodGet
	if headOnly {
		method = http.MethodHead
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(c.cfg.RetryWait * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return Result{}, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		defer resp.Body.Close()

		var body []byte
		if !headOnly {
			body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			if err != nil {
				lastErr = err
				continue
			}
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return Result{
			StatusCode: resp.StatusCode,
			Body:       body,
			FinalURL:   resp.Request.URL.String(),
			Attempts:   attempt + 1,
		}, nil
	}
	return Result{}, fmt.Errorf("exhausted %d retries: %w", c.cfg.MaxRetries, lastErr)
}
