// Package crawler fetches web pages concurrently and extracts readable text.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nstogner/answerpipe/pkg/httplog"
)

const (
	DefaultMaxSize   = 5 * 1024 * 1024
	DefaultUserAgent = "answerpipe/1.0"
)

// Page is the result of crawling a single URL.
type Page struct {
	URL      string
	Title    string
	Content  string
	Err      error
	Duration time.Duration
}

// Crawler fetches pages with a bounded pool of workers.
type Crawler struct {
	httpClient *http.Client
	maxSize    int64
	userAgent  string
	maxWorkers int
}

// New creates a crawler. Non-positive workers means one worker.
func New(timeout time.Duration, maxWorkers int, logger *slog.Logger) *Crawler {
	client := httplog.NewClient("Crawler", timeout, logger)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("too many redirects")
		}
		return nil
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Crawler{
		httpClient: client,
		maxSize:    DefaultMaxSize,
		userAgent:  DefaultUserAgent,
		maxWorkers: maxWorkers,
	}
}

// Crawl fetches every URL and returns one Page per URL in input order.
func (c *Crawler) Crawl(ctx context.Context, urls []string) []Page {
	pages := make([]Page, len(urls))
	if len(urls) == 0 {
		return pages
	}

	jobs := make(chan int, len(urls))
	for i := range urls {
		jobs <- i
	}
	close(jobs)

	workers := min(c.maxWorkers, len(urls))
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				pages[i] = c.fetch(ctx, urls[i])
			}
		}()
	}
	wg.Wait()
	return pages
}

func (c *Crawler) fetch(ctx context.Context, url string) Page {
	start := time.Now()
	page := Page{URL: url}
	page.Title, page.Content, page.Err = c.fetchText(ctx, url)
	page.Duration = time.Since(start)
	return page
}

func (c *Crawler) fetchText(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if ct != "" && !strings.Contains(ct, "text/html") && !strings.Contains(ct, "application/xhtml") {
		return "", "", fmt.Errorf("non-HTML content type: %s", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize))
	if err != nil {
		return "", "", fmt.Errorf("reading body: %w", err)
	}
	return ExtractText(body)
}
