// Package exa wraps the Exa Answer and Context APIs as search tools.
package exa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/httplog"
	"github.com/nstogner/answerpipe/pkg/tools"
)

const (
	DefaultBaseURL   = "https://api.exa.ai"
	DefaultTokensNum = 5000
)

// APIError is returned for non-2xx responses from Exa.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Exa API error: %d - %s", e.StatusCode, e.Body)
}

// Client calls the Exa REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty apiKey is accepted so that the
// missing credential surfaces per call rather than at construction.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httplog.NewClient("Exa", timeout, logger, "x-api-key"),
	}
}

// CheckCredentials reports whether the API key is configured.
func (c *Client) CheckCredentials() error {
	if c.apiKey == "" {
		return fmt.Errorf("EXA_API_KEY %w", tools.ErrMissingCredential)
	}
	return nil
}

// AnswerResponse is the decoded body of POST /answer.
type AnswerResponse struct {
	Answer    *string           `json:"answer"`
	Citations []domain.Citation `json:"citations"`
}

// Answer calls POST /answer. When text is set Exa includes full page text in
// each citation.
func (c *Client) Answer(ctx context.Context, query string, text bool) (*AnswerResponse, error) {
	var resp AnswerResponse
	err := c.post(ctx, "/answer", map[string]any{"query": query, "text": text}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ContextResponse is the decoded body of POST /context.
type ContextResponse struct {
	Response     *string `json:"response"`
	ResultsCount int     `json:"resultsCount"`
}

// Context calls POST /context, asking for roughly tokensNum tokens of code
// and documentation context.
func (c *Client) Context(ctx context.Context, query string, tokensNum int) (*ContextResponse, error) {
	var resp ContextResponse
	err := c.post(ctx, "/context", map[string]any{"query": query, "tokensNum": tokensNum}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	if err := c.CheckCredentials(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling Exa %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding Exa %s response: %w", path, err)
	}
	return nil
}
