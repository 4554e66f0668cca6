package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/model"
	"github.com/nstogner/answerpipe/pkg/store"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// MockProvider returns scripted responses in order and records requests.
type MockProvider struct {
	Responses []domain.Message
	Errs      []error
	Requests  []model.Request
	Key       string
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) CheckCredentials() error {
	if m.Key == "" {
		return errors.New("MOCK_API_KEY not configured")
	}
	return nil
}

func (m *MockProvider) Complete(ctx context.Context, req model.Request) (domain.Message, error) {
	i := len(m.Requests)
	m.Requests = append(m.Requests, req)
	if i < len(m.Errs) && m.Errs[i] != nil {
		return domain.Message{}, m.Errs[i]
	}
	if i >= len(m.Responses) {
		return domain.Message{Role: domain.RoleAssistant}, nil
	}
	return m.Responses[i], nil
}

// MockTool returns a fixed output or error and records queries.
type MockTool struct {
	ToolName string
	Out      tools.Output
	Err      error
	Key      *string
	Queries  []string
}

func (m *MockTool) Name() string             { return m.ToolName }
func (m *MockTool) Description() string      { return "mock tool " + m.ToolName }
func (m *MockTool) QueryDescription() string { return "query" }

func (m *MockTool) CheckCredentials() error {
	if m.Key != nil && *m.Key == "" {
		return errors.New("MOCK_TOOL_KEY not configured")
	}
	return nil
}

func (m *MockTool) Invoke(ctx context.Context, query string) (tools.Output, error) {
	m.Queries = append(m.Queries, query)
	return m.Out, m.Err
}

// MockRuntime is an AgentRuntime that calls each tool once with Query.
type MockRuntime struct {
	Query string
	Text  string
	Err   error
	Task  AgentTask
	Calls []string
}

func (m *MockRuntime) Kickoff(ctx context.Context, task AgentTask) (string, error) {
	m.Task = task
	for _, t := range task.Tools {
		out, err := t.Call(ctx, m.Query)
		if err != nil {
			out = "tool error: " + err.Error()
		}
		m.Calls = append(m.Calls, out)
	}
	return m.Text, m.Err
}

// MockStore is an in-memory store.RunStore.
type MockStore struct {
	mu   sync.Mutex
	Runs []store.RunRecord
	Err  error
}

func (m *MockStore) SaveRun(ctx context.Context, rec *store.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Runs = append(m.Runs, *rec)
	return nil
}

func (m *MockStore) GetRun(ctx context.Context, id string) (*store.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Runs {
		if m.Runs[i].ID == id {
			return &m.Runs[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.RunRecord(nil), m.Runs...), nil
}

func text(s string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: s}
}

func user(s string) domain.Message {
	return domain.Message{Role: domain.RoleUser, Content: s}
}

func calls(cs ...domain.ToolCall) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, ToolCalls: cs}
}

func call(id, name, query string) domain.ToolCall {
	args, _ := jsonQuery(query)
	return domain.ToolCall{ID: id, Name: name, Arguments: args}
}
