package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/model"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// Strategy produces the answer text for a run. A returned error is a fatal
// transport failure; the orchestrator turns it into an ERROR result.
type Strategy interface {
	Answer(ctx context.Context, run *Run) (string, error)
}

// credentialChecker is implemented by providers, tools and runtimes that need
// an API key.
type credentialChecker interface {
	CheckCredentials() error
}

// CatalogStrategy declares the tool catalog to the model, executes the
// requested calls, and asks the model once more for the answer. It performs
// at most one tool round: tool calls in the second response are ignored.
type CatalogStrategy struct {
	Provider    model.Provider
	Model       string
	Temperature float64
}

var _ Strategy = (*CatalogStrategy)(nil)

func (s *CatalogStrategy) CheckCredentials() error {
	if c, ok := s.Provider.(credentialChecker); ok {
		return c.CheckCredentials()
	}
	return nil
}

func (s *CatalogStrategy) Answer(ctx context.Context, run *Run) (string, error) {
	msgs := Compose(run.Turn, Guidance(run.Tools.List()))

	run.Enter(domain.StateModelCall1)
	resp, err := s.Provider.Complete(ctx, model.Request{
		Model:       s.Model,
		Messages:    msgs,
		Tools:       run.Tools.Catalog(),
		Temperature: s.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.ToolCalls) == 0 {
		return resp.Content, nil
	}

	msgs = append(msgs, resp)
	run.Enter(domain.StateToolPhase)
	for _, call := range resp.ToolCalls {
		var content string
		out, err := run.Invoke(ctx, call)
		if err != nil {
			content = "Error: " + err.Error()
		} else {
			content = out.Text
		}
		msgs = append(msgs, domain.Message{
			Role:       domain.RoleTool,
			Content:    content,
			ToolCallID: call.ID,
		})
	}

	run.Enter(domain.StateModelCall2)
	final, err := s.Provider.Complete(ctx, model.Request{
		Model:       s.Model,
		Messages:    msgs,
		Temperature: s.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(final.ToolCalls) > 0 {
		run.Log.Debug("Ignoring tool calls in final response", "count", len(final.ToolCalls))
	}

	text := final.Content
	if strings.TrimSpace(text) == "" {
		run.Log.Warn("Empty response from model, using fallback", "citations", run.Citations.Len())
		text = synthesisFallback(run.Citations.Len())
	}
	return text, nil
}

// AgentTool is a search tool handed to an agent runtime. Call never panics on
// tool failure; it returns the error for the runtime to handle.
type AgentTool struct {
	Name             string
	Description      string
	QueryDescription string
	Call             func(ctx context.Context, query string) (string, error)
}

// AgentTask is the work given to an agent runtime.
type AgentTask struct {
	// Instructions are the caller's system instructions, if any.
	Instructions   string
	Description    string
	ExpectedOutput string
	Tools          []AgentTool
}

// AgentRuntime is an external agent that runs its own tool loop. Its
// internals are opaque to the pipeline.
type AgentRuntime interface {
	Kickoff(ctx context.Context, task AgentTask) (string, error)
}

// AgentStrategy delegates the whole exchange to an AgentRuntime. Tools are
// wrapped so their citations still reach the run's aggregator. A runtime
// failure is answered with an apology rather than an ERROR result.
type AgentStrategy struct {
	Runtime AgentRuntime
}

var _ Strategy = (*AgentStrategy)(nil)

func (s *AgentStrategy) CheckCredentials() error {
	if c, ok := s.Runtime.(credentialChecker); ok {
		return c.CheckCredentials()
	}
	return nil
}

func (s *AgentStrategy) Answer(ctx context.Context, run *Run) (string, error) {
	run.Enter(domain.StateModelCall1)

	task := AgentTask{
		Instructions: run.Turn.System,
		Description:  taskDescription(run.Turn, run.Tools.List()),
		ExpectedOutput: "A comprehensive answer to the user's query, incorporating any relevant " +
			"information from web searches if needed.",
	}
	for _, t := range run.Tools.List() {
		task.Tools = append(task.Tools, agentTool(run, t))
	}

	text, err := s.Runtime.Kickoff(ctx, task)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty result from agent execution")
	}
	if err != nil {
		run.Log.Error("Agent execution failed", "error", err)
		return agentApology(err), nil
	}
	return text, nil
}

func agentTool(run *Run, t tools.Tool) AgentTool {
	return AgentTool{
		Name:             t.Name(),
		Description:      t.Description(),
		QueryDescription: t.QueryDescription(),
		Call: func(ctx context.Context, query string) (string, error) {
			args, err := jsonQuery(query)
			if err != nil {
				return "", err
			}
			out, err := run.Invoke(ctx, domain.ToolCall{ID: t.Name(), Name: t.Name(), Arguments: args})
			if err != nil {
				return "", err
			}
			return withSourceList(out), nil
		},
	}
}

// withSourceList appends a numbered source list so the agent can cite
// results inline.
func withSourceList(out tools.Output) string {
	if len(out.Citations) == 0 {
		return out.Text
	}
	var b strings.Builder
	b.WriteString(out.Text)
	b.WriteString("\n\nSources:\n")
	for i, c := range out.Citations {
		title := c.Title
		if title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, title, c.URL)
	}
	return b.String()
}

func jsonQuery(query string) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"query": query})
}

func taskDescription(t Turn, ts []tools.Tool) string {
	var b strings.Builder
	if len(t.History) > 0 {
		b.WriteString(ConversationContext(t.History))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Current query: %s\n\n", t.Current.Content)
	b.WriteString("Respond to the current query. Choose the appropriate search tool based on the question:\n")
	for _, tool := range ts {
		hint := tool.Description()
		if h, ok := tool.(hinter); ok {
			hint = h.UsageHint()
		}
		fmt.Fprintf(&b, "- Use %s %s\n", tool.Name(), hint)
	}
	b.WriteString("You can call tools multiple times if needed to gather sufficient information. " +
		"Provide a comprehensive answer based on your findings.")
	return b.String()
}
