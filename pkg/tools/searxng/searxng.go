// Package searxng implements a web search tool backed by a SearXNG instance.
package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/nstogner/answerpipe/pkg/httplog"
)

// Result is a single SearXNG search result.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
	// PublishedDate is set by news engines only.
	PublishedDate string `json:"publishedDate"`
}

type searchResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Client talks to the SearXNG JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a SearXNG client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httplog.NewClient("SearXNG", timeout, logger),
	}
}

// Search returns the top maxResults results ordered by score, highest first.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, errors.New("SearXNG returned 403 Forbidden, the JSON format may not be enabled in settings.yml")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("SearXNG API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	sort.SliceStable(sr.Results, func(i, j int) bool {
		return sr.Results[i].Score > sr.Results[j].Score
	})
	if maxResults > 0 && len(sr.Results) > maxResults {
		sr.Results = sr.Results[:maxResults]
	}
	return sr.Results, nil
}

// Ping verifies that SearXNG is reachable and serves JSON.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, "test", 1)
	return err
}
