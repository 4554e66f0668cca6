package searxng

import (
	"context"
	"fmt"
	"strings"

	"github.com/nstogner/answerpipe/pkg/crawler"
	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// Tool is the "web_search" tool. When a Crawler is set the result pages are
// fetched so citations carry page text for source previews.
type Tool struct {
	Client     *Client
	Crawler    *crawler.Crawler
	MaxResults int
}

var _ tools.Tool = (*Tool)(nil)

func (t *Tool) Name() string { return "web_search" }

func (t *Tool) Description() string {
	return "Search the web with a metasearch engine and read the top result pages. " +
		"Use this for general questions when the other search tools are unavailable or return nothing useful."
}

func (t *Tool) QueryDescription() string { return "Search query" }

func (t *Tool) UsageHint() string { return "for broad web searches that need full page text" }

func (t *Tool) Invoke(ctx context.Context, query string) (tools.Output, error) {
	results, err := t.Client.Search(ctx, query, t.MaxResults)
	if err != nil {
		return tools.Output{}, err
	}
	if len(results) == 0 {
		return tools.Output{Text: fmt.Sprintf("No results found for %q.", query)}, nil
	}

	var pages []crawler.Page
	if t.Crawler != nil {
		urls := make([]string, len(results))
		for i, r := range results {
			urls[i] = r.URL
		}
		pages = t.Crawler.Crawl(ctx, urls)
	}

	var b strings.Builder
	citations := make([]domain.Citation, 0, len(results))
	for i, r := range results {
		text := r.Content
		if i < len(pages) && pages[i].Err == nil && pages[i].Content != "" {
			text = pages[i].Content
		}
		title := r.Title
		if title == "" && i < len(pages) {
			title = pages[i].Title
		}

		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n%s\n\n", i+1, title, r.URL, text)
		citations = append(citations, domain.Citation{
			URL:           r.URL,
			Title:         title,
			PublishedDate: r.PublishedDate,
			Text:          text,
		})
	}

	return tools.Output{
		Text:      strings.TrimSpace(b.String()) + fmt.Sprintf("\n\nFound %d relevant results.", len(results)),
		Citations: citations,
	}, nil
}
