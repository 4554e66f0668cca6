// The cli command is an interactive terminal chat over the answer pipes.
//
// Usage:
//
//	export EXA_API_KEY="..." OPENROUTER_API_KEY="..."
//	go run ./cmd/cli
//	go run ./cmd/cli -q "what changed in Go 1.24?"
//
// Commands:
//
//	/exit  - Exit the program
//	/clear - Forget the conversation
//	/pipe  - Choose another pipe
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/nstogner/answerpipe/pkg/app"
	"github.com/nstogner/answerpipe/pkg/config"
	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/pipeline"
	"github.com/nstogner/answerpipe/pkg/store"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.LoadEnv(os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model provider (openrouter or gemini)")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Model name")
	flag.StringVar(&cfg.SearXNGURL, "searxng-url", cfg.SearXNGURL, "SearXNG base URL (enables web_search)")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "Run journal backend (sqlite, jsonl or none)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Run journal path")
	pipeID := flag.String("pipe", "", "Pipe to use (skips the selection menu)")
	question := flag.String("q", "", "Ask one question, print the answer and exit")
	logFile := flag.String("log-file", "answerpipe.log", "Log file for the interactive mode")
	flag.Parse()

	level, err := config.ParseLogLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One-shot mode logs to stderr; the TUI owns the terminal so it logs to a file.
	var logOut io.Writer = os.Stderr
	if *question == "" {
		f, err := os.OpenFile(*logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fatal:", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := config.NewLogger(logOut, level)
	slog.SetDefault(logger)

	journal, err := app.OpenJournal(cfg)
	if err != nil {
		logger.Error("Failed to open run journal", "error", err)
		os.Exit(1)
	}
	var runs store.RunStore
	if journal != nil {
		defer journal.Close()
		runs = journal
	}

	pipes, err := app.Build(ctx, cfg, logger, runs)
	if err != nil {
		logger.Error("Failed to build pipes", "error", err)
		os.Exit(1)
	}

	if *question != "" {
		id := *pipeID
		if id == "" {
			id = pipeline.PipeDirect
		}
		if err := askOnce(ctx, os.Stdout, pipes, id, *question); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	p := tea.NewProgram(initialModel(ctx, pipes, *pipeID), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}

// askOnce answers a single question on w. Markdown is rendered only when w
// is a terminal.
func askOnce(ctx context.Context, w *os.File, pipes *pipeline.Manifold, pipeID, q string) error {
	fd := int(w.Fd())
	tty := term.IsTerminal(fd)
	width := 80
	if tty {
		if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
			width = cols
		}
	}
	return writeAnswer(ctx, w, pipes, pipeID, q, tty, width)
}

func writeAnswer(ctx context.Context, w io.Writer, pipes *pipeline.Manifold, pipeID, q string, tty bool, width int) error {
	deliver := func(_ context.Context, text string) error {
		if tty {
			text = renderMarkdown(newRenderer(width-4), text)
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(text, "\n"))
		return err
	}
	sources := func(_ context.Context, src []domain.Source) error {
		if tty {
			_, err := fmt.Fprint(w, "\n"+renderSources(src))
			return err
		}
		_, err := fmt.Fprint(w, "\n"+plainSources(src))
		return err
	}
	msgs := []domain.Message{{Role: domain.RoleUser, Content: q}}
	_, err := pipes.Chat(ctx, pipeID, msgs, deliver, sources)
	return err
}

func plainSources(sources []domain.Source) string {
	var sb strings.Builder
	sb.WriteString("Sources:\n")
	for _, s := range sources {
		url := ""
		if len(s.URLs) > 0 {
			url = s.URLs[0]
		}
		fmt.Fprintf(&sb, "%s: %s\n", s.Name, url)
	}
	return sb.String()
}
