package gemini_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/model"
	"github.com/nstogner/answerpipe/pkg/model/gemini"
)

func setupProvider(t *testing.T) *gemini.Provider {
	t.Helper()
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping: GEMINI_API_KEY not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	provider, err := gemini.New(ctx, apiKey, 30*time.Second, nil)
	if err != nil {
		t.Fatalf("gemini.New: %v", err)
	}
	return provider
}

// TestIntegrationGeminiCompleteBasic verifies a simple text response from the model.
func TestIntegrationGeminiCompleteBasic(t *testing.T) {
	p := setupProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := p.Complete(ctx, model.Request{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "Reply with exactly: HELLO"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(strings.ToUpper(msg.Content), "HELLO") {
		t.Errorf("Content = %q, want it to contain HELLO", msg.Content)
	}
}

// TestIntegrationGeminiCompleteToolCall verifies the model requests a declared tool.
func TestIntegrationGeminiCompleteToolCall(t *testing.T) {
	p := setupProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := p.Complete(ctx, model.Request{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "Use the web_search tool to look up the latest Go release."}},
		Tools: []model.Tool{{
			Name:        "web_search",
			Description: "Search the web.",
			Arguments:   []model.Argument{{Name: "query", Description: "The search query."}},
		}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(msg.ToolCalls) == 0 {
		t.Fatalf("expected a tool call, got text %q", msg.Content)
	}
	if msg.ToolCalls[0].Name != "web_search" {
		t.Errorf("Name = %q", msg.ToolCalls[0].Name)
	}
}
