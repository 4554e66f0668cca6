package model

import (
	"context"

	"github.com/nstogner/answerpipe/pkg/domain"
)

// Argument is a single string argument accepted by a tool.
type Argument struct {
	Name        string
	Description string
}

// Tool is a catalog entry describing a capability the model may call.
// Every argument is a required string.
type Tool struct {
	Name        string
	Description string
	Arguments   []Argument
}

// JSONSchema renders the tool's arguments as a JSON-schema object.
func (t Tool) JSONSchema() map[string]any {
	props := make(map[string]any, len(t.Arguments))
	required := make([]string, 0, len(t.Arguments))
	for _, a := range t.Arguments {
		props[a.Name] = map[string]any{
			"type":        "string",
			"description": a.Description,
		}
		required = append(required, a.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Request is a single exchange with a model.
type Request struct {
	// Model identifies which model to use (e.g. "moonshotai/kimi-k2-thinking").
	Model    string
	Messages []domain.Message
	// Tools is the declared catalog. When empty the model is asked for plain text.
	Tools       []Tool
	Temperature float64
}

// Provider represents a service that hosts LLMs (e.g. OpenRouter, Gemini).
type Provider interface {
	// Name returns the provider's identifier (e.g. "openrouter").
	Name() string

	// Complete sends the conversation and blocks until the full response
	// message is available. The returned message has RoleAssistant and carries
	// either text, tool calls, or both.
	Complete(ctx context.Context, req Request) (domain.Message, error)
}
