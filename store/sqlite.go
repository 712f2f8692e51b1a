package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a Cache backed by a SQLite database. Every Put appends a row, so
// the table doubles as a run history.
type SQLite struct {
	db *sql.DB
}

var _ Cache = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the database at path and enables WAL
// mode.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema migration: %w", err)
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		start TEXT NOT NULL,
		budget INTEGER NOT NULL,
		strategy TEXT NOT NULL,
		max_pressure INTEGER NOT NULL,
		actions JSON,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint, created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Put appends rec.
func (s *SQLite) Put(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	actions, err := json.Marshal(rec.Actions)
	if err != nil {
		return fmt.Errorf("store: marshal actions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, fingerprint, start, budget, strategy, max_pressure, actions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Fingerprint, rec.Start, rec.Budget, rec.Strategy,
		int64(rec.MaxPressure), string(actions), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: insert run %s: %w", rec.RunID, err)
	}

	return nil
}

// Get returns the newest run stored under fp.
func (s *SQLite) Get(ctx context.Context, fp string) (Record, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, fingerprint, start, budget, strategy, max_pressure, actions, created_at
		FROM runs WHERE fingerprint = ?
		ORDER BY created_at DESC, rowid DESC LIMIT 1`, fp)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	return rec, true, nil
}

// History returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *SQLite) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, fingerprint, start, budget, strategy, max_pressure, actions, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate history: %w", err)
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec      Record
		pressure int64
		actions  sql.NullString
		created  int64
	)
	err := sc.Scan(&rec.RunID, &rec.Fingerprint, &rec.Start, &rec.Budget, &rec.Strategy, &pressure, &actions, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("store: scan run: %w", err)
	}
	if actions.Valid && actions.String != "" {
		if err := json.Unmarshal([]byte(actions.String), &rec.Actions); err != nil {
			return Record{}, fmt.Errorf("store: decode actions of %s: %w", rec.RunID, err)
		}
	}
	rec.MaxPressure = uint64(pressure)
	rec.CreatedAt = time.Unix(0, created).UTC()

	return rec, nil
}
