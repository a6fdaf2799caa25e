// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps a local SQLite record of completed range probes.
// The journal is append-only diagnostics: it tells an operator which
// ranges a run covered and how much each yielded, but the traversal never
// reads it back for control flow.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/inspire-harvester/internal/harvest"
)

// Journal wraps the probe log database.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path, creating the
// schema and any missing parent directories.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS range_probes (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		q TEXT NOT NULL,
		lo INTEGER NOT NULL,
		hi INTEGER NOT NULL,
		total INTEGER NOT NULL,
		downloaded INTEGER NOT NULL,
		finished_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// RecordProbe appends one terminal range probe.
func (j *Journal) RecordProbe(ctx context.Context, probe harvest.RangeProbe) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO range_probes (q, lo, hi, total, downloaded, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		probe.Query, probe.Range.Lo, probe.Range.Hi, probe.Total, probe.Downloaded,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording probe: %w", err)
	}
	return nil
}

// Summary aggregates the journal contents.
type Summary struct {
	Probes     int
	Downloaded int
}

// Summarize returns probe and document counts across all recorded runs.
func (j *Journal) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(downloaded), 0) FROM range_probes`,
	).Scan(&s.Probes, &s.Downloaded)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing journal: %w", err)
	}
	return s, nil
}
