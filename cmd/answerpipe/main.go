package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nstogner/answerpipe/pkg/app"
	"github.com/nstogner/answerpipe/pkg/config"
	"github.com/nstogner/answerpipe/pkg/server"
	"github.com/nstogner/answerpipe/pkg/store"
	"github.com/nstogner/answerpipe/pkg/tools/searxng/docker"
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.LoadEnv(os.Getenv); err != nil {
		slog.Error("Invalid environment", "error", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model provider (openrouter or gemini)")
	flag.StringVar(&cfg.Model, "model", cfg.Model, "Model name")
	flag.Float64Var(&cfg.Temperature, "temperature", cfg.Temperature, "Sampling temperature")
	flag.BoolVar(&cfg.EmitSources, "emit-sources", cfg.EmitSources, "Emit formatted sources after each answer")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout for model and tool calls")
	flag.StringVar(&cfg.SearXNGURL, "searxng-url", cfg.SearXNGURL, "SearXNG base URL (enables web_search)")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "Run journal backend (sqlite, jsonl or none)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Run journal path")
	startSearXNG := flag.Bool("start-searxng", false, "Launch a local SearXNG container and enable web_search")
	logLevel := flag.String("log-level", os.Getenv("LOG_LEVEL"), "Log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	// Setup logger.
	level, err := config.ParseLogLevel(*logLevel)
	if err != nil {
		slog.Error("Invalid log level", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger(os.Stderr, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *startSearXNG {
		launcher, err := docker.New(logger)
		if err != nil {
			logger.Error("Failed to initialize docker client", "error", err)
			os.Exit(1)
		}
		defer launcher.Close()

		url, err := launcher.Ensure(ctx)
		if err != nil {
			logger.Error("Failed to start SearXNG", "error", err)
			os.Exit(1)
		}
		logger.Info("SearXNG ready", "url", url)
		cfg.SearXNGURL = url
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize run journal.
	journal, err := app.OpenJournal(cfg)
	if err != nil {
		logger.Error("Failed to open run journal", "error", err)
		os.Exit(1)
	}
	var runs store.RunStore
	if journal != nil {
		defer journal.Close()
		runs = journal
	}

	pipes, err := app.Build(ctx, cfg, logger, runs)
	if err != nil {
		logger.Error("Failed to build pipes", "error", err)
		os.Exit(1)
	}
	for _, p := range pipes.Pipes() {
		pipe, _ := pipes.Get(p.ID)
		if err := pipe.Orchestrator.CheckCredentials(); err != nil {
			logger.Warn("Pipe not ready", "pipe", p.ID, "error", err)
		}
	}

	if err := server.New(pipes, logger).Run(ctx, cfg.Addr); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
