package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nstogner/answerpipe/pkg/domain"
	"github.com/nstogner/answerpipe/pkg/store"
)

// Store implements store.RunStore using SQLite.
type Store struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.RunStore = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		pipe TEXT NOT NULL DEFAULT '',
		query TEXT NOT NULL DEFAULT '',
		final_text TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_sources (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY (run_id, seq),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) SaveRun(ctx context.Context, rec *store.RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, pipe, query, final_text, state, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Pipe, rec.Query, rec.FinalText, string(rec.State), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	// Sources keep their 1-based display order via seq.
	for i, src := range rec.Sources {
		b, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("marshal source: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_sources (run_id, seq, source) VALUES (?, ?, ?)`,
			rec.ID, i+1, string(b),
		); err != nil {
			return fmt.Errorf("insert source: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetRun(ctx context.Context, id string) (*store.RunRecord, error) {
	rec := &store.RunRecord{}
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, pipe, query, final_text, state, created_at FROM runs WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Pipe, &rec.Query, &rec.FinalText, &state, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	rec.State = domain.RunState(state)

	if rec.Sources, err = s.sources(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	query := `SELECT id, pipe, query, final_text, state, created_at FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.RunRecord
	for rows.Next() {
		var rec store.RunRecord
		var state string
		if err := rows.Scan(&rec.ID, &rec.Pipe, &rec.Query, &rec.FinalText, &state, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.State = domain.RunState(state)
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Sources, err = s.sources(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) sources(ctx context.Context, runID string) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source FROM run_sources WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var src domain.Source
		if err := json.Unmarshal([]byte(raw), &src); err != nil {
			return nil, fmt.Errorf("decode source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
