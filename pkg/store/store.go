package store

import (
	"context"
	"errors"
	"time"

	"github.com/nstogner/answerpipe/pkg/domain"
)

// ErrNotFound is returned when a run ID is not in the journal.
var ErrNotFound = errors.New("run not found")

// RunRecord is one completed run as kept in the journal.
type RunRecord struct {
	ID        string          `json:"id"`
	Pipe      string          `json:"pipe"`
	Query     string          `json:"query"`
	FinalText string          `json:"final_text"`
	State     domain.RunState `json:"state"`
	Sources   []domain.Source `json:"sources"`
	CreatedAt time.Time       `json:"created_at"`
}

// RunStore is an append-only audit journal of completed runs. It is never
// read back into a conversation: callers always supply their own history.
type RunStore interface {
	// SaveRun persists a run. The ID field must be set by the caller.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// GetRun retrieves a run by ID, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*RunRecord, error)

	// ListRuns returns the most recent runs first. If limit > 0, returns at
	// most that many.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
