// Package manifest persists ingestion run reports in SQLite.
//
// The manifest is advisory: the pipeline's skip decision is based on the
// vector store's chunk count, not on this database. The manifest exists so
// operators can see whether the last run finished cleanly and which files
// failed, which the store count alone cannot tell.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paperbase/paperbase/internal/models"
)

// Manifest records ingestion runs and their per-file outcomes.
type Manifest struct {
	db *sql.DB
}

// Open opens or creates the manifest database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func Open(dbPath string) (*Manifest, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Manifest{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingest_runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		skipped INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		chunks INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON ingest_runs(started_at);

	CREATE TABLE IF NOT EXISTS ingest_files (
		run_id TEXT NOT NULL,
		file TEXT NOT NULL,
		status TEXT NOT NULL,
		pages INTEGER NOT NULL,
		pages_failed INTEGER NOT NULL,
		chunks INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, file),
		FOREIGN KEY (run_id) REFERENCES ingest_runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun stores a run report and its per-file results in one transaction.
func (m *Manifest) RecordRun(ctx context.Context, report *models.Report) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, started_at, finished_at, skipped, completed, chunks)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.StartedAt, report.FinishedAt,
		boolToInt(report.Skipped), boolToInt(report.Completed), report.TotalChunks(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, f := range report.Files {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ingest_files (run_id, file, status, pages, pages_failed, chunks, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, f.File, string(f.Status), f.Pages, f.PagesFailed, f.Chunks, f.Error,
		)
		if err != nil {
			return fmt.Errorf("insert file result for %s: %w", f.File, err)
		}
	}
	return tx.Commit()
}

// LatestRun returns the most recently started run with its file results, or
// (nil, nil) when no run has been recorded.
func (m *Manifest) LatestRun(ctx context.Context) (*models.Report, error) {
	var (
		report   models.Report
		skipped  int
		complete int
	)
	err := m.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, skipped, completed
		 FROM ingest_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&report.RunID, &report.StartedAt, &report.FinishedAt, &skipped, &complete)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}
	report.Skipped = skipped != 0
	report.Completed = complete != 0

	rows, err := m.db.QueryContext(ctx,
		`SELECT file, status, pages, pages_failed, chunks, COALESCE(error, '')
		 FROM ingest_files WHERE run_id = ? ORDER BY file`,
		report.RunID,
	)
	if err != nil {
		return nil, fmt.Errorf("query file results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f models.FileResult
		var status string
		if err := rows.Scan(&f.File, &status, &f.Pages, &f.PagesFailed, &f.Chunks, &f.Error); err != nil {
			return nil, fmt.Errorf("scan file result: %w", err)
		}
		f.Status = models.FileStatus(status)
		report.Files = append(report.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &report, nil
}

// Close closes the underlying database.
func (m *Manifest) Close() error {
	return m.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
