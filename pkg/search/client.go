// Package search implements the Search Client (spec.md §4.1): issues
// structured web/search queries with pay-per-success accounting, and
// fetches page markdown for evidence extraction. Every external call
// is wrapped by a circuit breaker so a failing search backend degrades
// to status=error quickly instead of exhausting the bounded retry
// budget on every hop (SPEC_FULL.md §4.1).
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	sharedhttp "github.com/scoutline/ralph/pkg/shared/http"
)

// Status is the outcome of a search or fetch call (spec.md §4.1: "must
// return status=empty, not raise").
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

// ResultItem is one ranked search hit (spec.md §4.1).
type ResultItem struct {
	Title    string
	URL      string
	Snippet  string
	Position int
}

// SearchResponse is the Search Client's search() output (spec.md §4.1).
type SearchResponse struct {
	Status  Status
	Results []ResultItem
	CostUSD float64
}

// FetchResponse is fetch_markdown()'s output (spec.md §4.1).
type FetchResponse struct {
	Status   Status
	Content  string
	FinalURL string
	CostUSD  float64
}

// CostPerFetch is charged on every successful fetch (spec.md §4.1:
// "Accounts cost per successful fetch").
const CostPerFetch = 0.002

// BatchConcurrency bounds batch_fetch's parallelism (spec.md §4.1).
const BatchConcurrency = 4

// Config points the client at a search backend and carries its OAuth
// client credentials. The breaker settings are fixed in New.
type Config struct {
	Endpoint           string
	OAuthTokenURL      string
	OAuthClientID      string
	OAuthClientSecret  string
}

// Client is the Search Client.
type Client struct {
	http    *sharedhttp.Client
	cfg     Config
	tokener oauth2.TokenSource
	breaker *gobreaker.CircuitBreaker
}

// New returns a Client. A non-empty cfg.OAuthTokenURL enables
// client-credentials OAuth2 against the search backend.
func New(http *sharedhttp.Client, cfg Config) *Client {
	var tokener oauth2.TokenSource
	if cfg.OAuthTokenURL != "" {
		tokener = (&clientcredentials.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			TokenURL:     cfg.OAuthTokenURL,
		}).TokenSource(context.Background())
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "search-client",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{http: http, cfg: cfg, tokener: tokener, breaker: breaker}
}

type searchAPIResponse struct {
	Results []struct {
		Title    string `json:"title"`
		URL      string `json:"url"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"results"`
}

// Search issues a structured query (spec.md §4.1). It never raises on
// a zero-result query — that is StatusEmpty, not an error.
func (c *Client) Search(ctx context.Context, query, engine string, numResults int) (SearchResponse, error) {
	url := fmt.Sprintf("%s?engine=%s&q=%s&n=%d", c.cfg.Endpoint, engine, query, numResults)

	raw, err := c.breaker.Execute(func() (interface{}, error) {
		result, err := c.http.Get(ctx, url, false)
		if err != nil {
			return nil, err
		}
		return result.Body, nil
	})
	if err != nil {
		return SearchResponse{Status: StatusError}, nil
	}

	var parsed searchAPIResponse
	if err := json.Unmarshal(raw.([]byte), &parsed); err != nil {
		return SearchResponse{Status: StatusError}, nil
	}
	if len(parsed.Results) == 0 {
		return SearchResponse{Status: StatusEmpty}, nil
	}

	items := make([]ResultItem, len(parsed.Results))
	for i, r := range parsed.Results {
		items[i] = ResultItem{Title: r.Title, URL: r.URL, Snippet: r.Snippet, Position: r.Position}
	}
	return SearchResponse{Status: StatusSuccess, Results: items}, nil
}

// FetchMarkdown fetches url and returns it as markdown-ish plaintext
// (spec.md §4.1). Real markdown conversion is a downstream collaborator
// concern; this returns the raw body.
func (c *Client) FetchMarkdown(ctx context.Context, url string) FetchResponse {
	raw, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Get(ctx, url, false)
	})
	if err != nil {
		return FetchResponse{Status: StatusError}
	}

	result := raw.(sharedhttp.Result)
	if len(result.Body) == 0 {
		return FetchResponse{Status: StatusEmpty, FinalURL: result.FinalURL}
	}
	return FetchResponse{Status: StatusSuccess, Content: string(result.Body), FinalURL: result.FinalURL, CostUSD: CostPerFetch}
}

// BatchFetch fetches urls with bounded concurrency (spec.md §4.1).
func (c *Client) BatchFetch(ctx context.Context, urls []string) []FetchResponse {
	responses := make([]FetchResponse, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(BatchConcurrency)

	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			responses[i] = c.FetchMarkdown(gctx, u)
			return nil
		})
	}
	_ = g.Wait() // FetchMarkdown never returns an error; per-item status carries the outcome
	return responses
}
