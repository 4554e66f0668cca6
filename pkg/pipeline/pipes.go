package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/store"
)

// Pipe identifiers served by default.
const (
	PipeDirect = "exa-openrouter-direct"
	PipeAgent  = "exa-agent-answer"
)

// ErrUnknownPipe is returned for a pipe ID that is not registered.
var ErrUnknownPipe = errors.New("unknown pipe")

// PipeInfo describes a pipe to clients.
type PipeInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pipe is a named orchestrator.
type Pipe struct {
	PipeInfo
	Orchestrator *Orchestrator
}

// Manifold serves several pipes, emits their output and journals each run.
type Manifold struct {
	pipes       []*Pipe
	byID        map[string]*Pipe
	journal     store.RunStore
	emitSources bool
	log         *slog.Logger
}

// NewManifold creates a manifold. journal may be nil.
func NewManifold(logger *slog.Logger, journal store.RunStore, emitSources bool, pipes ...*Pipe) *Manifold {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manifold{
		byID:        make(map[string]*Pipe),
		journal:     journal,
		emitSources: emitSources,
		log:         logger,
	}
	for _, p := range pipes {
		m.pipes = append(m.pipes, p)
		m.byID[p.ID] = p
	}
	return m
}

// Pipes lists the available pipes in registration order.
func (m *Manifold) Pipes() []PipeInfo {
	out := make([]PipeInfo, 0, len(m.pipes))
	for _, p := range m.pipes {
		out = append(out, p.PipeInfo)
	}
	return out
}

// Get returns a pipe by ID.
func (m *Manifold) Get(id string) (*Pipe, bool) {
	p, ok := m.byID[id]
	return p, ok
}

// Journal returns the run store, or nil.
func (m *Manifold) Journal() store.RunStore { return m.journal }

// Chat runs the pipe over messages, delivers the answer then the sources,
// and journals the run. Journal failures are logged, not returned.
func (m *Manifold) Chat(ctx context.Context, pipeID string, messages []domain.Message, deliver DeliverFunc, sources SourcesFunc) (*domain.Result, error) {
	p, ok := m.Get(pipeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPipe, pipeID)
	}

	res, err := p.Orchestrator.Run(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err := Emit(ctx, res, deliver, sources, m.emitSources); err != nil {
		return res, err
	}

	if m.journal != nil {
		turn, _ := SplitTurn(messages)
		rec := &store.RunRecord{
			ID:        res.RunID,
			Pipe:      pipeID,
			Query:     turn.Current.Content,
			FinalText: res.FinalText,
			State:     res.State,
			Sources:   FormatSources(res.Citations),
			CreatedAt: res.Finished,
		}
		if err := m.journal.SaveRun(ctx, rec); err != nil {
			m.log.Warn("Failed to journal run", "runID", res.RunID, "error", err)
		}
	}
	return res, nil
}
