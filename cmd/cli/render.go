package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nstogner/answerpipe/pkg/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true)

	sourceHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true)
	sourceTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	sourceURLStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Underline(true)

	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	selectedItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Padding(0, 1) // Red
)

// entry is one rendered turn of the transcript.
type entry struct {
	role    domain.Role
	text    string
	sources []domain.Source
}

// newRenderer uses a fixed style so glamour never queries the terminal.
func newRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	r, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(width),
	)
	return r
}

func renderMarkdown(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}

// renderSources lists sources as numbered title/url pairs.
func renderSources(sources []domain.Source) string {
	if len(sources) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(sourceHeaderStyle.Render("Sources"))
	sb.WriteString("\n")
	for _, s := range sources {
		url := ""
		if len(s.URLs) > 0 {
			url = s.URLs[0]
		}
		fmt.Fprintf(&sb, "  %s\n", sourceTitleStyle.Render(s.Name))
		if url != "" {
			fmt.Fprintf(&sb, "      %s\n", sourceURLStyle.Render(url))
		}
	}
	return sb.String()
}

func renderTranscript(entries []entry, r *glamour.TermRenderer) string {
	var sb strings.Builder
	for _, e := range entries {
		switch e.role {
		case domain.RoleUser:
			sb.WriteString(userStyle.Render("User: "))
			sb.WriteString("\n")
			sb.WriteString(e.text)
			sb.WriteString("\n\n")
		default:
			sb.WriteString(senderStyle.Render("AI: "))
			sb.WriteString("\n")
			sb.WriteString(renderMarkdown(r, e.text))
			if src := renderSources(e.sources); src != "" {
				sb.WriteString(src)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
