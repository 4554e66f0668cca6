package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/model"
	"google.golang.org/genai"
)

func TestToContentsMapsRoles(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "weather?"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
			{ID: "c1", Name: "exa_answer_search", Arguments: json.RawMessage(`{"query":"a"}`)},
			{ID: "c2", Name: "exa_context_search", Arguments: json.RawMessage(`{"query":"b"}`)},
		}},
		{Role: domain.RoleTool, ToolCallID: "c1", Content: "sunny"},
		{Role: domain.RoleTool, ToolCallID: "c2", Content: "Error: boom"},
	}

	system, contents, err := toContents(msgs)
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if system == nil || system.Parts[0].Text != "be brief" {
		t.Fatalf("system = %+v", system)
	}
	if len(contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(contents))
	}
	if contents[1].Role != "model" || len(contents[1].Parts) != 2 {
		t.Errorf("model turn = %+v", contents[1])
	}
	if contents[1].Parts[0].FunctionCall.Args["query"] != "a" {
		t.Errorf("args = %v", contents[1].Parts[0].FunctionCall.Args)
	}

	replies := contents[2]
	if replies.Role != "user" || len(replies.Parts) != 2 {
		t.Fatalf("tool replies = %+v", replies)
	}
	fr := replies.Parts[1].FunctionResponse
	if fr.ID != "c2" || fr.Name != "exa_context_search" || fr.Response["result"] != "Error: boom" {
		t.Errorf("function response = %+v", fr)
	}
}

func TestToContentsRejectsBadArguments(t *testing.T) {
	_, _, err := toContents([]domain.Message{
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "c1", Name: "t", Arguments: json.RawMessage(`not json`)}}},
	})
	if err == nil {
		t.Fatal("expected error for invalid arguments")
	}
}

func TestBuildToolDeclarations(t *testing.T) {
	tools := buildToolDeclarations([]model.Tool{
		{Name: "web_search", Description: "search", Arguments: []model.Argument{{Name: "query", Description: "q"}}},
	})
	if len(tools) != 1 || len(tools[0].FunctionDeclarations) != 1 {
		t.Fatalf("tools = %+v", tools)
	}
	decl := tools[0].FunctionDeclarations[0]
	if decl.Parameters.Type != genai.TypeObject || decl.Parameters.Properties["query"].Type != genai.TypeString {
		t.Errorf("schema = %+v", decl.Parameters)
	}
	if len(decl.Parameters.Required) != 1 || decl.Parameters.Required[0] != "query" {
		t.Errorf("required = %v", decl.Parameters.Required)
	}
}

func TestFromResponseAssignsMissingIDs(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Let me search."},
				{FunctionCall: &genai.FunctionCall{Name: "web_search", Args: map[string]any{"query": "go"}}},
			}},
		}},
	}

	msg := fromResponse(resp)
	if msg.Content != "Let me search." {
		t.Errorf("Content = %q", msg.Content)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", msg.ToolCalls)
	}
	if !strings.HasPrefix(msg.ToolCalls[0].ID, "call-") {
		t.Errorf("ID = %q", msg.ToolCalls[0].ID)
	}
	if string(msg.ToolCalls[0].Arguments) != `{"query":"go"}` {
		t.Errorf("Arguments = %s", msg.ToolCalls[0].Arguments)
	}
}

func TestFromResponseEmpty(t *testing.T) {
	msg := fromResponse(&genai.GenerateContentResponse{})
	if msg.Role != domain.RoleAssistant || msg.Content != "" || len(msg.ToolCalls) != 0 {
		t.Errorf("msg = %+v", msg)
	}
}

func TestNewKeepsLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := New(context.Background(), "test-key", time.Second, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.log != logger {
		t.Error("provider should log through the injected logger")
	}

	p, err = New(context.Background(), "", time.Second, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.log == nil {
		t.Error("nil logger should be replaced with a discard logger")
	}
}

func TestNewWithoutKey(t *testing.T) {
	p, err := New(context.Background(), "", 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.CheckCredentials(); err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("CheckCredentials = %v", err)
	}
	if _, err := p.Complete(context.Background(), model.Request{}); err == nil {
		t.Error("Complete without key should fail")
	}
}
