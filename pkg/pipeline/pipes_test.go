package pipeline

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/tools"
)

func newManifold(p *MockProvider, journal *MockStore, ts ...tools.Tool) *Manifold {
	direct := &Pipe{
		PipeInfo:     PipeInfo{ID: PipeDirect, Name: "Exa OpenRouter Direct"},
		Orchestrator: newDirect(p, ts...),
	}
	agent := &Pipe{
		PipeInfo:     PipeInfo{ID: PipeAgent, Name: "Exa Agent Answer"},
		Orchestrator: New(&AgentStrategy{Runtime: &MockRuntime{Text: "agent"}}, nil, nil),
	}
	if journal == nil {
		return NewManifold(nil, nil, true, direct, agent)
	}
	return NewManifold(nil, journal, true, direct, agent)
}

func TestManifoldPipes(t *testing.T) {
	m := newManifold(&MockProvider{Key: "k"}, nil)
	want := []PipeInfo{{ID: PipeDirect, Name: "Exa OpenRouter Direct"}, {ID: PipeAgent, Name: "Exa Agent Answer"}}
	if got := m.Pipes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pipes() = %+v", got)
	}
}

func TestManifoldChatEmitsAndJournals(t *testing.T) {
	p := &MockProvider{Key: "k", Responses: []domain.Message{
		calls(call("c1", "s", "lisbon")),
		text("Sunny."),
	}}
	tool := &MockTool{ToolName: "s", Out: tools.Output{Text: "r", Citations: []domain.Citation{{URL: "https://x", Title: "X"}}}}
	journal := &MockStore{}
	m := newManifold(p, journal, tool)

	var events []string
	deliver := func(ctx context.Context, text string) error {
		events = append(events, "text")
		return nil
	}
	sources := func(ctx context.Context, s []domain.Source) error {
		events = append(events, "sources")
		return nil
	}

	res, err := m.Chat(context.Background(), PipeDirect, []domain.Message{user("weather in lisbon")}, deliver, sources)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !reflect.DeepEqual(events, []string{"text", "sources"}) {
		t.Errorf("events = %v", events)
	}

	if len(journal.Runs) != 1 {
		t.Fatalf("journaled %d runs, want 1", len(journal.Runs))
	}
	rec := journal.Runs[0]
	if rec.ID != res.RunID || rec.Pipe != PipeDirect || rec.Query != "weather in lisbon" || rec.FinalText != "Sunny." {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Sources) != 1 || rec.Sources[0].Name != "[1] X" {
		t.Errorf("sources = %+v", rec.Sources)
	}
}

func TestManifoldUnknownPipe(t *testing.T) {
	m := newManifold(&MockProvider{Key: "k"}, nil)
	_, err := m.Chat(context.Background(), "nope", []domain.Message{user("q")}, nil, nil)
	if !errors.Is(err, ErrUnknownPipe) {
		t.Errorf("err = %v", err)
	}
}

func TestManifoldJournalFailureIsNotFatal(t *testing.T) {
	p := &MockProvider{Key: "k", Responses: []domain.Message{text("ok")}}
	m := newManifold(p, &MockStore{Err: errors.New("disk full")})
	res, err := m.Chat(context.Background(), PipeDirect, []domain.Message{user("q")}, nil, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.FinalText != "ok" {
		t.Errorf("FinalText = %q", res.FinalText)
	}
}

func TestManifoldMissingCredentialNotJournaled(t *testing.T) {
	journal := &MockStore{}
	m := newManifold(&MockProvider{}, journal)
	_, err := m.Chat(context.Background(), PipeDirect, []domain.Message{user("q")}, nil, nil)
	if !errors.Is(err, ErrMissingCredential) {
		t.Errorf("err = %v", err)
	}
	if len(journal.Runs) != 0 {
		t.Error("failed precondition must not be journaled")
	}
}
