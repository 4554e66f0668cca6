package exa

import (
	"context"
	"fmt"

	"github.com/nstogner/answerpipe/pkg/tools"
)

// AnswerTool is the "exa_answer_search" tool for general web queries.
type AnswerTool struct {
	Client *Client
	// Text asks Exa to include page text in citations, which feeds the
	// source previews.
	Text bool
}

var _ tools.Tool = (*AnswerTool)(nil)

func (t *AnswerTool) Name() string { return "exa_answer_search" }

func (t *AnswerTool) Description() string {
	return "Search the web using Exa's Answer API to find information and generate " +
		"comprehensive answers. Use this when you need current information from the web. " +
		"The query should be a clear question or search term."
}

func (t *AnswerTool) QueryDescription() string { return "Search query or question" }

func (t *AnswerTool) UsageHint() string { return "for general web queries and current events" }

func (t *AnswerTool) CheckCredentials() error { return t.Client.CheckCredentials() }

func (t *AnswerTool) Invoke(ctx context.Context, query string) (tools.Output, error) {
	resp, err := t.Client.Answer(ctx, query, t.Text)
	if err != nil {
		return tools.Output{}, err
	}
	out := tools.Output{Text: "No answer provided.", Citations: resp.Citations}
	if resp.Answer != nil {
		out.Text = *resp.Answer
	}
	return out, nil
}

// ContextTool is the "exa_context_search" tool for code and documentation.
// It never returns citations.
type ContextTool struct {
	Client    *Client
	TokensNum int
}

var _ tools.Tool = (*ContextTool)(nil)

func (t *ContextTool) Name() string { return "exa_context_search" }

func (t *ContextTool) Description() string {
	return "Search GitHub repos, documentation, and Stack Overflow using Exa's Context API " +
		"to find code snippets, examples, and technical documentation. Use this when you need " +
		"code examples, implementation details, or technical information. " +
		"The query should be a clear technical question or search term."
}

func (t *ContextTool) QueryDescription() string {
	return "Technical search query for code or documentation"
}

func (t *ContextTool) UsageHint() string {
	return "for coding questions, technical documentation, and code examples"
}

func (t *ContextTool) CheckCredentials() error { return t.Client.CheckCredentials() }

func (t *ContextTool) Invoke(ctx context.Context, query string) (tools.Output, error) {
	tokens := t.TokensNum
	if tokens <= 0 {
		tokens = DefaultTokensNum
	}
	resp, err := t.Client.Context(ctx, query, tokens)
	if err != nil {
		return tools.Output{}, err
	}
	text := "No context provided."
	if resp.Response != nil {
		text = *resp.Response
	}
	return tools.Output{Text: fmt.Sprintf("%s\n\nFound %d relevant results.", text, resp.ResultsCount)}, nil
}
