package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// ErrMissingCredential is returned by Run before any network call when the
// model provider or a tool lacks its API key.
var ErrMissingCredential = errors.New("missing credential")

// Orchestrator drives runs through a Strategy. It holds no per-run state and
// is safe for concurrent use.
type Orchestrator struct {
	strategy Strategy
	tools    *tools.Registry
	log      *slog.Logger
}

// New creates an orchestrator. A nil logger discards all output.
func New(strategy Strategy, registry *tools.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Orchestrator{strategy: strategy, tools: registry, log: logger}
}

// Tools returns the registry the orchestrator dispatches to.
func (o *Orchestrator) Tools() *tools.Registry { return o.tools }

// CheckCredentials verifies every required key is present.
func (o *Orchestrator) CheckCredentials() error {
	if c, ok := o.strategy.(credentialChecker); ok {
		if err := c.CheckCredentials(); err != nil {
			return fmt.Errorf("%w: %v", ErrMissingCredential, err)
		}
	}
	for _, t := range o.tools.List() {
		if c, ok := t.(credentialChecker); ok {
			if err := c.CheckCredentials(); err != nil {
				return fmt.Errorf("%w: %v", ErrMissingCredential, err)
			}
		}
	}
	return nil
}

// Run answers the last message of the conversation. Missing credentials and
// an empty conversation are returned as errors before any network call. A
// model transport failure is not an error: it yields a result in StateError
// whose FinalText is "Error: <reason>".
func (o *Orchestrator) Run(ctx context.Context, messages []domain.Message) (*domain.Result, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Tools:     o.tools,
		Citations: &Aggregator{},
	}
	run.Log = o.log.With("runID", run.ID)
	run.Enter(domain.StateInit)

	if err := o.CheckCredentials(); err != nil {
		run.Log.Error("Credential check failed", "error", err)
		return nil, err
	}

	turn, err := SplitTurn(messages)
	if err != nil {
		return nil, err
	}
	run.Turn = turn
	run.Log.Info("Starting run", "historyLen", len(turn.History), "hasSystem", turn.System != "")

	text, err := o.strategy.Answer(ctx, run)
	if err != nil {
		run.Enter(domain.StateError)
		run.Log.Error("Model call failed", "error", err)
		return o.result(run, "Error: "+err.Error()), nil
	}

	if strings.TrimSpace(text) == "" {
		run.Log.Warn("Empty response detected, using fallback", "citations", run.Citations.Len())
		text = runFallback(run.Citations.Len())
	}
	run.Enter(domain.StateDone)
	run.Log.Info("Run finished", "textLen", len(text), "citations", run.Citations.Len())
	return o.result(run, text), nil
}

func (o *Orchestrator) result(run *Run, text string) *domain.Result {
	return &domain.Result{
		RunID:     run.ID,
		FinalText: text,
		Citations: run.Citations.All(),
		State:     run.State(),
		Trace:     run.Trace(),
		Finished:  time.Now().UTC(),
	}
}
