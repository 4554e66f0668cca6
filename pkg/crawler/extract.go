package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// MaxWords bounds the text ExtractText returns.
const MaxWords = 500

var skipTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
}

// ExtractText returns the page title and its visible body text with
// whitespace collapsed, truncated to MaxWords words.
func ExtractText(page []byte) (title, text string, err error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", "", fmt.Errorf("parsing HTML: %w", err)
	}

	title = strings.Join(strings.Fields(findTitle(doc)), " ")

	var b strings.Builder
	collectText(doc, &b)
	return title, truncateWords(strings.Fields(b.String()), MaxWords), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return b.String()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (skipTags[n.Data] || n.Data == "title") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func truncateWords(words []string, max int) string {
	if len(words) <= max {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:max], " ") + "..."
}
