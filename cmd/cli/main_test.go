package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/pipeline"
)

type fixedStrategy struct {
	text      string
	citations []domain.Citation
}

func (s *fixedStrategy) Answer(ctx context.Context, run *pipeline.Run) (string, error) {
	run.Citations.Add(s.citations...)
	return s.text, nil
}

func testPipes() *pipeline.Manifold {
	s := &fixedStrategy{
		text:      "Go 1.24 adds generic type aliases.",
		citations: []domain.Citation{{URL: "https://go.dev/doc/go1.24", Title: "Go 1.24 Release Notes"}},
	}
	return pipeline.NewManifold(nil, nil, true,
		&pipeline.Pipe{PipeInfo: pipeline.PipeInfo{ID: "direct", Name: "Direct"}, Orchestrator: pipeline.New(s, nil, nil)},
		&pipeline.Pipe{PipeInfo: pipeline.PipeInfo{ID: "agent", Name: "Agent"}, Orchestrator: pipeline.New(s, nil, nil)},
	)
}

func TestWriteAnswerPlain(t *testing.T) {
	var buf bytes.Buffer
	if err := writeAnswer(context.Background(), &buf, testPipes(), "direct", "what is new?", false, 80); err != nil {
		t.Fatalf("writeAnswer: %v", err)
	}
	want := "Go 1.24 adds generic type aliases.\n\nSources:\n[1] Go 1.24 Release Notes: https://go.dev/doc/go1.24\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriteAnswerUnknownPipe(t *testing.T) {
	var buf bytes.Buffer
	if err := writeAnswer(context.Background(), &buf, testPipes(), "nope", "q", false, 80); err == nil {
		t.Error("expected error")
	}
}

func TestRenderSources(t *testing.T) {
	if renderSources(nil) != "" {
		t.Error("no sources should render nothing")
	}
	out := renderSources(pipeline.FormatSources([]domain.Citation{
		{URL: "https://a.example", Title: "A"},
		{URL: "https://b.example"},
	}))
	for _, s := range []string{"Sources", "[1] A", "https://a.example", "[2] Source 2", "https://b.example"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
	if strings.Contains(out, "[1] [1]") || strings.Contains(out, "[2] [2]") {
		t.Errorf("index printed twice:\n%s", out)
	}
}

func TestPlainSourcesSingleIndex(t *testing.T) {
	out := plainSources(pipeline.FormatSources([]domain.Citation{{URL: "https://go.dev", Title: "Go"}}))
	if out != "Sources:\n[1] Go: https://go.dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestModelPipeSelection(t *testing.T) {
	m := initialModel(context.Background(), testPipes(), "")
	if m.state != stateSelectingPipe {
		t.Fatalf("state = %v", m.state)
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.(model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := next.(model)
	if got.state != stateChatting || got.pipeID != "agent" {
		t.Errorf("state = %v pipe = %q", got.state, got.pipeID)
	}

	preset := initialModel(context.Background(), testPipes(), "direct")
	if preset.state != stateChatting || preset.pipeID != "direct" {
		t.Errorf("preset state = %v pipe = %q", preset.state, preset.pipeID)
	}
}

func TestModelConversation(t *testing.T) {
	pipes := testPipes()
	m := initialModel(context.Background(), pipes, "direct")
	m.textarea.SetValue("what is new?")

	m, cmd := m.sendMessage()
	if !m.pending || len(m.history) != 1 || cmd == nil {
		t.Fatalf("after send: pending=%v history=%v", m.pending, m.history)
	}

	msg := ask(context.Background(), pipes, "direct", m.history)()
	ans, ok := msg.(answerMsg)
	if !ok {
		t.Fatalf("msg = %#v", msg)
	}
	if ans.text != "Go 1.24 adds generic type aliases." || len(ans.sources) != 1 {
		t.Errorf("answer = %+v", ans)
	}

	next, _ := m.Update(ans)
	got := next.(model)
	if got.pending || len(got.history) != 2 || got.history[1].Role != domain.RoleAssistant {
		t.Errorf("history = %+v", got.history)
	}
	if len(got.entries) != 2 || len(got.entries[1].sources) != 1 {
		t.Errorf("entries = %+v", got.entries)
	}
}

func TestModelErrorDropsQuestion(t *testing.T) {
	m := initialModel(context.Background(), testPipes(), "direct")
	m.history = []domain.Message{{Role: domain.RoleUser, Content: "q"}}
	m.pending = true

	next, _ := m.Update(errMsg{context.Canceled})
	got := next.(model)
	if got.pending || got.err == nil || len(got.history) != 0 {
		t.Errorf("model = pending %v err %v history %v", got.pending, got.err, got.history)
	}
}

func TestModelCommands(t *testing.T) {
	m := initialModel(context.Background(), testPipes(), "direct")
	m.history = []domain.Message{{Role: domain.RoleUser, Content: "q"}}
	m.entries = []entry{{role: domain.RoleUser, text: "q"}}

	m.textarea.SetValue("/clear")
	m, _ = m.sendMessage()
	if len(m.history) != 0 || len(m.entries) != 0 {
		t.Error("/clear should reset the conversation")
	}

	m.textarea.SetValue("/pipe")
	m, _ = m.sendMessage()
	if m.state != stateSelectingPipe {
		t.Error("/pipe should return to pipe selection")
	}
}
