package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one refresh attempt, successful or not.
type Run struct {
	ID          string         `json:"id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	Failure     string         `json:"failure,omitempty"` // unreachable | no_postings | persistence | cancelled
	Total       int            `json:"total_jobs"`
	PerCategory map[string]int `json:"per_category"`
	Categories  []RunCategory  `json:"categories,omitempty"`
}

// RunCategory is what one category page contributed.
type RunCategory struct {
	Category   string `json:"category"`
	SourceURL  string `json:"source_url,omitempty"`
	Tier       string `json:"tier,omitempty"`
	Candidates int    `json:"candidates"`
	Records    int    `json:"records"`
	Error      string `json:"error,omitempty"`
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS scrape_runs (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  success INTEGER NOT NULL,
  message TEXT NOT NULL DEFAULT '',
  failure TEXT NOT NULL DEFAULT '',
  total INTEGER NOT NULL DEFAULT 0
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS run_categories (
  run_id TEXT NOT NULL REFERENCES scrape_runs(id) ON DELETE CASCADE,
  category TEXT NOT NULL,
  source_url TEXT NOT NULL DEFAULT '',
  tier TEXT NOT NULL DEFAULT '',
  candidates INTEGER NOT NULL DEFAULT 0,
  records INTEGER NOT NULL DEFAULT 0,
  error TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, category)
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_scrape_runs_started
ON scrape_runs(started_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) RecordRun(ctx context.Context, r Run) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO scrape_runs(id, started_at, finished_at, success, message, failure, total)
VALUES(?,?,?,?,?,?,?);`,
		r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.FinishedAt.UTC().Format(time.RFC3339Nano),
		boolInt(r.Success), r.Message, r.Failure, r.Total); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range r.Categories {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO run_categories(run_id, category, source_url, tier, candidates, records, error)
VALUES(?,?,?,?,?,?,?);`,
			r.ID, c.Category, c.SourceURL, c.Tier, c.Candidates, c.Records, c.Error); err != nil {
			return fmt.Errorf("insert run category: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the newest runs first, with their category rows.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT id, started_at, finished_at, success, message, failure, total
FROM scrape_runs
ORDER BY started_at DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var ok int
		if err := rows.Scan(&r.ID, &started, &finished, &ok, &r.Message, &r.Failure, &r.Total); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.Success = ok != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range out {
		cats, err := d.runCategories(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Categories = cats
		out[i].PerCategory = make(map[string]int, len(cats))
		for _, c := range cats {
			out[i].PerCategory[c.Category] = c.Records
		}
	}
	return out, nil
}

// LastRun returns the newest run, or nil when none has been recorded.
func (d *DB) LastRun(ctx context.Context) (*Run, error) {
	runs, err := d.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// LastSuccess returns the finish time of the newest successful run.
func (d *DB) LastSuccess(ctx context.Context) (time.Time, error) {
	var s string
	err := d.Pool.QueryRowContext(ctx, `
SELECT finished_at FROM scrape_runs WHERE success = 1
ORDER BY started_at DESC LIMIT 1;`).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

func (d *DB) runCategories(ctx context.Context, runID string) ([]RunCategory, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT category, source_url, tier, candidates, records, error
FROM run_categories
WHERE run_id = ?
ORDER BY rowid;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunCategory
	for rows.Next() {
		var c RunCategory
		if err := rows.Scan(&c.Category, &c.SourceURL, &c.Tier, &c.Candidates, &c.Records, &c.Error); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CleanupOldRuns deletes history older than the given age.
func (d *DB) CleanupOldRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339Nano)
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM scrape_runs WHERE started_at < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
