package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nstogner/answerpipe/pkg/config"
	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/pipeline"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "runs.db")
	return cfg
}

func TestNewRegistry(t *testing.T) {
	cfg := testConfig(t)
	reg := NewRegistry(cfg, nil)
	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name())
	}
	if len(names) != 2 || names[0] != "exa_answer_search" || names[1] != "exa_context_search" {
		t.Errorf("tools = %v", names)
	}

	cfg.SearXNGURL = "http://localhost:8888"
	reg = NewRegistry(cfg, nil)
	if _, ok := reg.Get("web_search"); !ok {
		t.Error("web_search should be registered when SearXNG is configured")
	}
}

func TestNewProvider(t *testing.T) {
	cfg := testConfig(t)
	p, err := NewProvider(context.Background(), cfg, nil)
	if err != nil || p.Name() != "openrouter" {
		t.Fatalf("openrouter: %v %v", p, err)
	}

	cfg.Provider = config.ProviderGemini
	p, err = NewProvider(context.Background(), cfg, nil)
	if err != nil || p.Name() != "gemini" {
		t.Fatalf("gemini: %v %v", p, err)
	}

	cfg.Provider = "bogus"
	if _, err := NewProvider(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestBuildFailsFastWithoutKeys(t *testing.T) {
	cfg := testConfig(t)
	m, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	infos := m.Pipes()
	if len(infos) != 2 || infos[0].ID != pipeline.PipeDirect || infos[1].ID != pipeline.PipeAgent {
		t.Fatalf("pipes = %+v", infos)
	}

	msgs := []domain.Message{{Role: domain.RoleUser, Content: "hi"}}
	for _, info := range infos {
		_, err := m.Chat(context.Background(), info.ID, msgs, nil, nil)
		if !errors.Is(err, pipeline.ErrMissingCredential) {
			t.Errorf("%s: err = %v, want ErrMissingCredential", info.ID, err)
		}
	}
}

func TestOpenJournal(t *testing.T) {
	for _, kind := range []string{config.StoreSQLite, config.StoreJSONL} {
		t.Run(kind, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Store = kind
			cfg.DBPath = filepath.Join(t.TempDir(), "nested", "runs")
			j, err := OpenJournal(cfg)
			if err != nil {
				t.Fatalf("OpenJournal: %v", err)
			}
			defer j.Close()
			runs, err := j.ListRuns(context.Background(), 10)
			if err != nil || len(runs) != 0 {
				t.Errorf("ListRuns = %v, %v", runs, err)
			}
		})
	}

	cfg := testConfig(t)
	cfg.Store = config.StoreNone
	j, err := OpenJournal(cfg)
	if err != nil || j != nil {
		t.Errorf("none: %v %v", j, err)
	}
}
