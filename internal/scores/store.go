// Package scores provides SQLite persistence for finished games.
package scores

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultLimit bounds Top when no limit is given.
const DefaultLimit = 10

// Result is one finished game.
type Result struct {
	ID        string    `json:"id"`
	Player    string    `json:"player"`
	Score     int       `json:"score"`
	Outcome   string    `json:"outcome"`
	Target    string    `json:"target,omitempty"`
	Remaining int       `json:"remaining"`
	Duration  int       `json:"duration"`
	EndedAt   time.Time `json:"endedAt"`
}

// Store provides SQLite persistence for game results.
type Store struct {
	db *sql.DB
}

// New opens the score database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("scores: open db: %w", err)
	}
	// one writer; the TUI and server share the handle
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("scores: enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			player TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			remaining INTEGER NOT NULL DEFAULT 0,
			duration INTEGER NOT NULL DEFAULT 0,
			ended_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_score ON results(score DESC, remaining DESC)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("scores: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a result and returns its ID. A missing ID or timestamp is
// filled in.
func (s *Store) Record(ctx context.Context, r Result) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.EndedAt.IsZero() {
		r.EndedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO results (id, player, score, outcome, target, remaining, duration, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Player, r.Score, r.Outcome, r.Target, r.Remaining, r.Duration, r.EndedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("scores: record: %w", err)
	}
	return r.ID, nil
}

// Top returns the best results: highest score first, then most time left,
// then earliest.
func (s *Store) Top(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player, score, outcome, target, remaining, duration, ended_at
		 FROM results ORDER BY score DESC, remaining DESC, ended_at ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("scores: top: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var ended int64
		if err := rows.Scan(&r.ID, &r.Player, &r.Score, &r.Outcome, &r.Target, &r.Remaining, &r.Duration, &ended); err != nil {
			return nil, fmt.Errorf("scores: scan: %w", err)
		}
		r.EndedAt = time.UnixMilli(ended)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scores: top: %w", err)
	}
	return out, nil
}

// Count returns the number of recorded games.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM results").Scan(&n); err != nil {
		return 0, fmt.Errorf("scores: count: %w", err)
	}
	return n, nil
}
