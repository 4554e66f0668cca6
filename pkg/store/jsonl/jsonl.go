// Package jsonl implements store.RunStore as an append-only JSON Lines file.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nstogner/answerpipe/pkg/store"
)

// Store appends one JSON object per run to a file.
type Store struct {
	path string
	mu   sync.Mutex
	file *os.File
}

var _ store.RunStore = (*Store)(nil)

// New opens (or creates) the journal file at path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Store{path: path, file: f}, nil
}

// Close closes the journal file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *Store) SaveRun(ctx context.Context, rec *store.RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(data, '\n'))
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (*store.RunRecord, error) {
	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].ID == id {
			return &recs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	recs, err := s.readAll()
	if err != nil {
		return nil, err
	}
	// Newest first.
	out := make([]store.RunRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		out = append(out, recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) readAll() ([]store.RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []store.RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec store.RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			slog.Debug("Skipping bad journal line", "path", s.path, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, scanner.Err()
}
