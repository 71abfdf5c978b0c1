package timelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Timestamps are stored in UTC with a fixed width so that text order is
// time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Repository struct {
	db *sql.DB
}

func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	repo := &Repository{db: db}
	if err := repo.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return repo, nil
}

func (r *Repository) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		outcome TEXT NOT NULL,
		remaining INTEGER NOT NULL DEFAULT 0,
		pauses INTEGER NOT NULL DEFAULT 0
	)
	`
	_, err := r.db.Exec(query)
	return err
}

// Record satisfies the state machine's recorder.
func (r *Repository) Record(ctx context.Context, e Entry) error {
	return r.Create(ctx, &e)
}

func (r *Repository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, started_at, ended_at, outcome, remaining, pauses) VALUES (?, ?, ?, ?, ?, ?)",
		e.ID,
		e.StartedAt.UTC().Format(timeLayout),
		e.EndedAt.UTC().Format(timeLayout),
		string(e.Outcome),
		e.Remaining.Milliseconds(),
		e.Pauses,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", e.ID, err)
	}
	return nil
}

// List returns the newest entries first. A limit of zero or less returns all.
func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, started_at, ended_at, outcome, remaining, pauses FROM sessions ORDER BY ended_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var startedAt, endedAt, outcome string
		var remaining int64
		if err := rows.Scan(&e.ID, &startedAt, &endedAt, &outcome, &remaining, &e.Pauses); err != nil {
			return nil, err
		}
		e.StartedAt, _ = time.Parse(timeLayout, startedAt)
		e.EndedAt, _ = time.Parse(timeLayout, endedAt)
		e.Outcome = Outcome(outcome)
		e.Remaining = time.Duration(remaining) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats counts sessions per outcome.
func (r *Repository) Stats(ctx context.Context) (map[Outcome]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT outcome, COUNT(*) FROM sessions GROUP BY outcome")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		stats[Outcome(outcome)] = n
	}
	return stats, rows.Err()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
