package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/model"
)

var (
	// ErrUnknownTool is returned when the model names a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrMissingCredential is wrapped by tools whose API key is not configured.
	ErrMissingCredential = errors.New("not configured")
)

// Output is the normalized result of one tool invocation.
type Output struct {
	Text      string
	Citations []domain.Citation
}

// Tool defines the interface that all search tools must implement.
// Every tool takes exactly one required string argument, the query.
type Tool interface {
	Name() string
	Description() string
	// QueryDescription describes the query argument to the model.
	QueryDescription() string
	Invoke(ctx context.Context, query string) (Output, error)
}

// Spec returns the catalog entry the model sees for t.
func Spec(t Tool) model.Tool {
	return model.Tool{
		Name:        t.Name(),
		Description: t.Description(),
		Arguments:   []model.Argument{{Name: "query", Description: t.QueryDescription()}},
	}
}

// Registry manages the available tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// Register adds a tool to the registry. Registering a name twice replaces
// the earlier tool but keeps its position.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	list := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}

// Catalog returns the declared tool catalog sent to the model.
func (r *Registry) Catalog() []model.Tool {
	catalog := make([]model.Tool, 0, len(r.order))
	for _, t := range r.List() {
		catalog = append(catalog, Spec(t))
	}
	return catalog
}

// Dispatch decodes the call's arguments and invokes the named tool.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall) (Output, error) {
	t, ok := r.Get(call.Name)
	if !ok {
		return Output{}, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	query, err := DecodeQuery(call.Arguments)
	if err != nil {
		return Output{}, err
	}
	return t.Invoke(ctx, query)
}

// DecodeQuery extracts the "query" argument from a raw tool-call payload.
// Some models double-encode the arguments as a JSON string; both forms are
// accepted.
func DecodeQuery(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("missing arguments")
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil || json.Unmarshal([]byte(s), &args) != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
	}
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", errors.New("'query' parameter is required")
	}
	return query, nil
}
