package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/httplog"
	"github.com/nstogner/answerpipe/pkg/model"
	"google.golang.org/genai"
)

// DefaultModel is used when the pipe does not name a Gemini model.
const DefaultModel = "gemini-2.5-flash"

// Provider implements model.Provider using the Google Gen AI SDK.
type Provider struct {
	client *genai.Client
	apiKey string
	log    *slog.Logger
}

// Verify interface compliance.
var _ model.Provider = (*Provider)(nil)

// New creates a new Gemini provider. HTTP traffic is dumped through logger at
// httplog.LevelTrace with the API key header redacted. Without an apiKey no
// client is created and every call reports the missing credential.
func New(ctx context.Context, apiKey string, timeout time.Duration, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if apiKey == "" {
		return &Provider{log: logger}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httplog.NewClient("Gemini", timeout, logger, "x-goog-api-key"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Provider{client: client, apiKey: apiKey, log: logger}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// CheckCredentials reports whether the API key is configured.
func (p *Provider) CheckCredentials() error {
	if p.apiKey == "" {
		return errors.New("GEMINI_API_KEY not configured")
	}
	return nil
}

// Complete sends the conversation to Gemini and returns the full response.
func (p *Provider) Complete(ctx context.Context, req model.Request) (domain.Message, error) {
	if p.client == nil {
		return domain.Message{}, p.CheckCredentials()
	}
	modelName := req.Model
	if modelName == "" || strings.Contains(modelName, "/") {
		// OpenRouter-style ids ("vendor/model") are not Gemini model names.
		modelName = DefaultModel
	}

	system, contents, err := toContents(req.Messages)
	if err != nil {
		return domain.Message{}, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(float32(req.Temperature)),
	}
	if len(req.Tools) > 0 {
		config.Tools = buildToolDeclarations(req.Tools)
	}

	p.log.Debug("Gemini.Complete", "model", modelName, "messageCount", len(contents), "tools", len(req.Tools))
	resp, err := p.client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return domain.Message{}, err
	}
	return fromResponse(resp), nil
}

// toContents converts domain messages to genai contents. System messages are
// merged into the system instruction.
func toContents(msgs []domain.Message) (*genai.Content, []*genai.Content, error) {
	var systemParts []*genai.Part
	var contents []*genai.Content
	toolNames := make(map[string]string) // tool call ID -> name

	for _, msg := range msgs {
		var parts []*genai.Part
		role := "user"

		switch msg.Role {
		case domain.RoleSystem:
			systemParts = append(systemParts, &genai.Part{Text: msg.Content})
			continue
		case domain.RoleAssistant:
			role = "model"
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				args := map[string]any{}
				if len(tc.Arguments) > 0 {
					if err := json.Unmarshal(tc.Arguments, &args); err != nil {
						return nil, nil, fmt.Errorf("tool call %s: invalid arguments: %w", tc.ID, err)
					}
				}
				toolNames[tc.ID] = tc.Name
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: tc.ID, Name: tc.Name, Args: args},
				})
			}
		case domain.RoleTool:
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     toolNames[msg.ToolCallID],
					Response: map[string]any{"result": msg.Content},
				},
			})
		default:
			parts = append(parts, &genai.Part{Text: msg.Content})
		}

		if len(parts) == 0 {
			continue
		}
		// Consecutive tool replies are grouped into one user turn.
		if msg.Role == domain.RoleTool && len(contents) > 0 {
			last := contents[len(contents)-1]
			if last.Role == "user" && len(last.Parts) > 0 && last.Parts[0].FunctionResponse != nil {
				last.Parts = append(last.Parts, parts...)
				continue
			}
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}
	return system, contents, nil
}

func buildToolDeclarations(tools []model.Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Arguments))
		required := make([]string, 0, len(t.Arguments))
		for _, a := range t.Arguments {
			props[a.Name] = &genai.Schema{Type: genai.TypeString, Description: a.Description}
			required = append(required, a.Name)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func fromResponse(resp *genai.GenerateContentResponse) domain.Message {
	var text strings.Builder
	var calls []domain.ToolCall

	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Thought {
				continue
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
			if fc := part.FunctionCall; fc != nil {
				id := fc.ID
				if id == "" {
					id = "call-" + uuid.New().String()
				}
				args, err := json.Marshal(fc.Args)
				if err != nil || fc.Args == nil {
					args = []byte("{}")
				}
				calls = append(calls, domain.ToolCall{ID: id, Name: fc.Name, Arguments: args})
			}
		}
	}

	return domain.Message{
		Role:      domain.RoleAssistant,
		Content:   text.String(),
		ToolCalls: calls,
	}
}
