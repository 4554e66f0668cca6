package pipeline

import (
	"fmt"
	"unicode/utf8"

	"github.com/nstogner/answerpipe/pkg/domain"
)

// Aggregator accumulates citations for one run in emission order. It never
// deduplicates.
type Aggregator struct {
	citations []domain.Citation
}

// Add appends citations in order.
func (a *Aggregator) Add(cs ...domain.Citation) {
	a.citations = append(a.citations, cs...)
}

// All returns a copy of every citation added so far.
func (a *Aggregator) All() []domain.Citation {
	out := make([]domain.Citation, len(a.citations))
	copy(out, a.citations)
	return out
}

func (a *Aggregator) Len() int { return len(a.citations) }

const (
	previewLen      = 500
	previewFallback = "Click the link to view the content."
)

// FormatSources projects citations into display sources. Indexes are 1-based
// and follow input order.
func FormatSources(citations []domain.Citation) []domain.Source {
	sources := make([]domain.Source, 0, len(citations))
	for i, c := range citations {
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("Source %d", i+1)
		}

		meta := map[string]string{"source": c.URL}
		if c.Author != "" {
			meta["author"] = c.Author
		}
		if c.PublishedDate != "" {
			meta["publishedDate"] = c.PublishedDate
		}

		doc := previewFallback
		if c.Text != "" {
			doc = truncateRunes(c.Text, previewLen)
		}

		sources = append(sources, domain.Source{
			Name:     fmt.Sprintf("[%d] %s", i+1, title),
			Type:     domain.SourceTypeWebSearch,
			URLs:     []string{c.URL},
			Document: doc,
			Metadata: meta,
		})
	}
	return sources
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
