// Package app assembles pipes, tools and the run journal from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nstogner/answerpipe/pkg/agent"
	"github.com/nstogner/answerpipe/pkg/config"
	"github.com/nstogner/answerpipe/pkg/crawler"
	"github.com/nstogner/answerpipe/pkg/model"
	"github.com/nstogner/answerpipe/pkg/model/gemini"
	"github.com/nstogner/answerpipe/pkg/model/openrouter"
	"github.com/nstogner/answerpipe/pkg/pipeline"
	"github.com/nstogner/answerpipe/pkg/store"
	"github.com/nstogner/answerpipe/pkg/store/jsonl"
	"github.com/nstogner/answerpipe/pkg/store/sqlite"
	"github.com/nstogner/answerpipe/pkg/tools"
	"github.com/nstogner/answerpipe/pkg/tools/exa"
	"github.com/nstogner/answerpipe/pkg/tools/searxng"
)

// NewProvider builds the model provider named by cfg.Provider.
func NewProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (model.Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenRouter:
		return openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.Timeout, logger), nil
	case config.ProviderGemini:
		p, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.Timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("creating gemini provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewRegistry builds the tool catalog: the two Exa tools, plus web_search
// when a SearXNG URL is configured.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *tools.Registry {
	client := exa.NewClient(cfg.ExaAPIKey, cfg.ExaBaseURL, cfg.Timeout, logger)
	reg := tools.NewRegistry(
		&exa.AnswerTool{Client: client, Text: cfg.ExaText},
		&exa.ContextTool{Client: client, TokensNum: cfg.ExaContextTokens},
	)
	if cfg.SearXNGURL != "" {
		reg.Register(&searxng.Tool{
			Client:     searxng.NewClient(cfg.SearXNGURL, cfg.Timeout, logger),
			Crawler:    crawler.New(cfg.CrawlTimeout, cfg.MaxCrawlers, logger),
			MaxResults: cfg.MaxResults,
		})
	}
	return reg
}

// Pipes builds the direct and agent pipes over one provider and registry.
func Pipes(cfg *config.Config, provider model.Provider, reg *tools.Registry, logger *slog.Logger) []*pipeline.Pipe {
	direct := &pipeline.CatalogStrategy{
		Provider:    provider,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
	}
	runtime := agent.New(provider, cfg.Model,
		agent.WithMaxSteps(cfg.AgentMaxSteps),
		agent.WithTemperature(cfg.Temperature),
		agent.WithLogger(logger),
	)
	return []*pipeline.Pipe{
		{
			PipeInfo:     pipeline.PipeInfo{ID: pipeline.PipeDirect, Name: "Exa Search (" + provider.Name() + ")"},
			Orchestrator: pipeline.New(direct, reg, logger),
		},
		{
			PipeInfo:     pipeline.PipeInfo{ID: pipeline.PipeAgent, Name: "Exa Agent Answer"},
			Orchestrator: pipeline.New(&pipeline.AgentStrategy{Runtime: runtime}, reg, logger),
		},
	}
}

// Build assembles a manifold from cfg. journal may be nil.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, journal store.RunStore) (*pipeline.Manifold, error) {
	provider, err := NewProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	reg := NewRegistry(cfg, logger)
	return pipeline.NewManifold(logger, journal, cfg.EmitSources, Pipes(cfg, provider, reg, logger)...), nil
}

// Journal is a run store that owns resources.
type Journal interface {
	store.RunStore
	Close() error
}

// OpenJournal opens the run journal selected by cfg.Store. It returns nil for
// config.StoreNone.
func OpenJournal(cfg *config.Config) (Journal, error) {
	if cfg.Store == config.StoreNone {
		return nil, nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreJSONL:
		s, err := jsonl.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
