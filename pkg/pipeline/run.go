package pipeline

import (
	"context"
	"log/slog"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/tools"
)

// Run is the state of one orchestration run. It is never shared between
// runs.
type Run struct {
	ID        string
	Turn      Turn
	Tools     *tools.Registry
	Citations *Aggregator
	Log       *slog.Logger

	trace []domain.RunState
}

// Enter records a state transition.
func (r *Run) Enter(s domain.RunState) {
	r.trace = append(r.trace, s)
	r.Log.Debug("Run state", "state", s)
}

// State returns the current state.
func (r *Run) State() domain.RunState {
	if len(r.trace) == 0 {
		return ""
	}
	return r.trace[len(r.trace)-1]
}

// Trace returns every state entered so far.
func (r *Run) Trace() []domain.RunState {
	return append([]domain.RunState(nil), r.trace...)
}

// Invoke dispatches one tool call. Citations from a successful call are added
// to the run's aggregator. Failures are returned to the caller, which decides
// how to present them; they never abort the run.
func (r *Run) Invoke(ctx context.Context, call domain.ToolCall) (tools.Output, error) {
	log := r.Log.With("tool", call.Name, "callID", call.ID)
	log.Info("Executing tool")

	out, err := r.Tools.Dispatch(ctx, call)
	if err != nil {
		log.Warn("Tool failed", "error", err)
		return tools.Output{}, err
	}
	r.Citations.Add(out.Citations...)
	log.Debug("Tool finished", "citations", len(out.Citations), "textLen", len(out.Text))
	return out, nil
}
