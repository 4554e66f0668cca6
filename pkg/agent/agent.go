// Package agent is a self-contained research agent that runs its own
// multi-step tool loop over a model.Provider. The pipeline treats it as an
// opaque pipeline.AgentRuntime.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/model"
	"github.com/nstogner/answerpipe/pkg/pipeline"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// DefaultMaxSteps bounds the number of model calls that may request tools.
const DefaultMaxSteps = 5

// Profile is the agent's persona.
type Profile struct {
	Role      string
	Goal      string
	Backstory string
}

// ResearchAssistant is the default profile.
var ResearchAssistant = Profile{
	Role: "Research Assistant",
	Goal: "Provide accurate and comprehensive answers using web search when needed",
	Backstory: "You are an expert research assistant with access to real-time web search. " +
		"You strategically choose the right search tool based on the question type. " +
		"You maintain conversation context and can handle follow-up questions naturally.",
}

// Runtime implements pipeline.AgentRuntime.
type Runtime struct {
	provider    model.Provider
	model       string
	temperature float64
	profile     Profile
	maxSteps    int
	log         *slog.Logger
}

var _ pipeline.AgentRuntime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

func WithProfile(p Profile) Option { return func(r *Runtime) { r.profile = p } }

func WithMaxSteps(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxSteps = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.log = l
		}
	}
}

func WithTemperature(t float64) Option { return func(r *Runtime) { r.temperature = t } }

// New creates a Runtime calling modelName on provider.
func New(provider model.Provider, modelName string, opts ...Option) *Runtime {
	r := &Runtime{
		provider:    provider,
		model:       modelName,
		temperature: 0.7,
		profile:     ResearchAssistant,
		maxSteps:    DefaultMaxSteps,
		log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// CheckCredentials delegates to the provider when it needs a key.
func (r *Runtime) CheckCredentials() error {
	if c, ok := r.provider.(interface{ CheckCredentials() error }); ok {
		return c.CheckCredentials()
	}
	return nil
}

// Kickoff runs the task to completion and returns the final answer.
func (r *Runtime) Kickoff(ctx context.Context, task pipeline.AgentTask) (string, error) {
	byName := make(map[string]pipeline.AgentTool, len(task.Tools))
	catalog := make([]model.Tool, 0, len(task.Tools))
	for _, t := range task.Tools {
		byName[t.Name] = t
		catalog = append(catalog, model.Tool{
			Name:        t.Name,
			Description: t.Description,
			Arguments:   []model.Argument{{Name: "query", Description: t.QueryDescription}},
		})
	}

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: r.systemPrompt(task.Instructions)},
		{Role: domain.RoleUser, Content: task.Description + "\n\nExpected output: " + task.ExpectedOutput},
	}

	for step := 0; step < r.maxSteps; step++ {
		r.log.Debug("Agent step", "step", step, "messages", len(msgs))
		resp, err := r.provider.Complete(ctx, model.Request{
			Model:       r.model,
			Messages:    msgs,
			Tools:       catalog,
			Temperature: r.temperature,
		})
		if err != nil {
			return "", fmt.Errorf("model call failed: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		msgs = append(msgs, resp)
		for _, call := range resp.ToolCalls {
			msgs = append(msgs, domain.Message{
				Role:       domain.RoleTool,
				Content:    r.execute(ctx, byName, call),
				ToolCallID: call.ID,
			})
		}
	}

	// Out of steps: ask for an answer with what has been gathered.
	r.log.Info("Agent reached step limit, requesting final answer", "maxSteps", r.maxSteps)
	msgs = append(msgs, domain.Message{
		Role:    domain.RoleUser,
		Content: "You have used all available tool calls. Provide your best final answer now.",
	})
	resp, err := r.provider.Complete(ctx, model.Request{
		Model:       r.model,
		Messages:    msgs,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", errors.New("agent produced no answer")
	}
	return resp.Content, nil
}

func (r *Runtime) execute(ctx context.Context, byName map[string]pipeline.AgentTool, call domain.ToolCall) string {
	t, ok := byName[call.Name]
	if !ok {
		r.log.Warn("Unknown tool called", "tool", call.Name)
		return fmt.Sprintf("Error: Tool '%s' not found.", call.Name)
	}
	query, err := tools.DecodeQuery(call.Arguments)
	if err != nil {
		return "Error: " + err.Error()
	}
	out, err := t.Call(ctx, query)
	if err != nil {
		r.log.Warn("Tool failed", "tool", call.Name, "error", err)
		return "Error searching: " + err.Error()
	}
	return out
}

func (r *Runtime) systemPrompt(instructions string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s.\n\nGoal: %s\n\n%s", r.profile.Role, r.profile.Goal, r.profile.Backstory)
	if instructions != "" {
		b.WriteString("\n\n")
		b.WriteString(instructions)
	}
	return b.String()
}
