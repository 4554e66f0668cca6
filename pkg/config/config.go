package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Provider names.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Journal backends.
const (
	StoreSQLite = "sqlite"
	StoreJSONL  = "jsonl"
	StoreNone   = "none"
)

// Config holds all application configuration.
type Config struct {
	// Exa settings
	ExaAPIKey        string
	ExaBaseURL       string
	ExaText          bool
	ExaContextTokens int

	// Model settings
	Provider          string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	GeminiAPIKey      string
	Model             string
	Temperature       float64
	AgentMaxSteps     int

	// Output
	EmitSources bool
	Timeout     time.Duration

	// SearXNG settings. An empty URL disables the web_search tool.
	SearXNGURL   string
	MaxResults   int
	CrawlTimeout time.Duration
	MaxCrawlers  int

	// Journal
	Store  string
	DBPath string

	// Server
	Addr string
}

// NewConfig creates a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		ExaBaseURL:       "https://api.exa.ai",
		ExaText:          false,
		ExaContextTokens: 5000,

		Provider:          ProviderOpenRouter,
		OpenRouterBaseURL: "https://openrouter.ai/api/v1",
		Model:             "moonshotai/kimi-k2-thinking",
		Temperature:       0.7,
		AgentMaxSteps:     5,

		EmitSources: true,
		Timeout:     60 * time.Second,

		MaxResults:   5,
		CrawlTimeout: 15 * time.Second,
		MaxCrawlers:  5,

		Store:  StoreSQLite,
		DBPath: filepath.Join(dataDir(), "answerpipe.db"),

		Addr: ":8080",
	}
}

// LoadEnv overlays values from environment variables, looked up through
// getenv (usually os.Getenv). Unset variables leave the current value in place.
func (c *Config) LoadEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("EXA_API_KEY", &c.ExaAPIKey)
	str("EXA_API_BASE_URL", &c.ExaBaseURL)
	boolean("EXA_TEXT_PARAMETER", &c.ExaText)
	integer("EXA_CONTEXT_TOKENS_NUM", &c.ExaContextTokens)

	str("ANSWERPIPE_PROVIDER", &c.Provider)
	str("OPENROUTER_API_KEY", &c.OpenRouterAPIKey)
	str("OPENROUTER_API_BASE_URL", &c.OpenRouterBaseURL)
	str("OPENROUTER_MODEL", &c.Model)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)

	boolean("EMIT_SOURCES", &c.EmitSources)
	if v := getenv("TIMEOUT"); v != "" {
		// Plain integers are seconds.
		if n, err := strconv.Atoi(v); err == nil {
			c.Timeout = time.Duration(n) * time.Second
		} else if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		} else {
			errs = append(errs, fmt.Errorf("TIMEOUT: invalid duration %q", v))
		}
	}

	str("SEARXNG_URL", &c.SearXNGURL)
	integer("SEARXNG_MAX_RESULTS", &c.MaxResults)

	str("ANSWERPIPE_STORE", &c.Store)
	str("ANSWERPIPE_DB", &c.DBPath)
	str("ANSWERPIPE_ADDR", &c.Addr)

	return errors.Join(errs...)
}

// Validate checks if the configuration is valid. Missing API keys are not
// reported here; runs fail fast on them instead.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenRouter:
		if c.OpenRouterBaseURL == "" {
			return fmt.Errorf("openrouter base URL cannot be empty")
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOpenRouter, ProviderGemini)
	}
	if c.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.ExaBaseURL == "" {
		return fmt.Errorf("exa base URL cannot be empty")
	}
	if c.ExaContextTokens < 1 {
		return fmt.Errorf("exa context tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.AgentMaxSteps < 1 {
		return fmt.Errorf("agent max steps must be at least 1")
	}
	if c.MaxResults < 1 || c.MaxResults > 10 {
		return fmt.Errorf("max results must be between 1 and 10")
	}
	if c.MaxCrawlers < 1 {
		return fmt.Errorf("max crawlers must be at least 1")
	}
	switch c.Store {
	case StoreSQLite, StoreJSONL, StoreNone:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Store != StoreNone && strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("journal path cannot be empty")
	}
	return nil
}

func dataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".answerpipe")
	}
	return "."
}
