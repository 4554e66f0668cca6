package config

import (
	"strings"
	"testing"
	"time"
)

func envOf(env map[string]string) func(string) string {
	return func(k string) string { return env[k] }
}

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/me")
	c := NewConfig()
	if c.ExaBaseURL != "https://api.exa.ai" || c.ExaContextTokens != 5000 || c.ExaText {
		t.Errorf("exa defaults = %+v", c)
	}
	if c.OpenRouterBaseURL != "https://openrouter.ai/api/v1" || c.Model != "moonshotai/kimi-k2-thinking" {
		t.Errorf("openrouter defaults = %+v", c)
	}
	if c.Temperature != 0.7 || !c.EmitSources || c.Timeout != 60*time.Second {
		t.Errorf("run defaults = %+v", c)
	}
	if c.DBPath != "/home/me/.answerpipe/answerpipe.db" {
		t.Errorf("DBPath = %q", c.DBPath)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	env := envOf(map[string]string{
		"EXA_API_KEY":            "exa",
		"OPENROUTER_API_KEY":     "or",
		"OPENROUTER_MODEL":       "anthropic/claude-3.5-sonnet",
		"EXA_TEXT_PARAMETER":     "true",
		"EXA_CONTEXT_TOKENS_NUM": "10000",
		"EMIT_SOURCES":           "false",
		"TIMEOUT":                "30",
		"SEARXNG_URL":            "http://localhost:9090",
	})
	c := NewConfig()
	if err := c.LoadEnv(env); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if c.ExaAPIKey != "exa" || c.OpenRouterAPIKey != "or" || c.Model != "anthropic/claude-3.5-sonnet" {
		t.Errorf("keys = %+v", c)
	}
	if !c.ExaText || c.ExaContextTokens != 10000 || c.EmitSources {
		t.Errorf("flags = %+v", c)
	}
	if c.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", c.Timeout)
	}
	if c.SearXNGURL != "http://localhost:9090" {
		t.Errorf("SearXNGURL = %q", c.SearXNGURL)
	}
}

func TestLoadEnvDurationAndErrors(t *testing.T) {
	c := NewConfig()
	if err := c.LoadEnv(envOf(map[string]string{"TIMEOUT": "1m30s"})); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if c.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", c.Timeout)
	}

	err := NewConfig().LoadEnv(envOf(map[string]string{"EMIT_SOURCES": "maybe", "EXA_CONTEXT_TOKENS_NUM": "lots"}))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "EMIT_SOURCES") || !strings.Contains(err.Error(), "EXA_CONTEXT_TOKENS_NUM") {
		t.Errorf("err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider = "ollama" }},
		{"model", func(c *Config) { c.Model = "" }},
		{"tokens", func(c *Config) { c.ExaContextTokens = 0 }},
		{"temperature", func(c *Config) { c.Temperature = 3 }},
		{"timeout", func(c *Config) { c.Timeout = 0 }},
		{"results", func(c *Config) { c.MaxResults = 11 }},
		{"crawlers", func(c *Config) { c.MaxCrawlers = 0 }},
		{"store", func(c *Config) { c.Store = "redis" }},
		{"db path", func(c *Config) { c.DBPath = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	c := NewConfig()
	c.Store = StoreNone
	c.DBPath = ""
	if err := c.Validate(); err != nil {
		t.Errorf("store none should not need a path: %v", err)
	}
}
