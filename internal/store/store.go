// Package store persists coverage runs in a SQLite database so rule usage
// and uncovered lines can be compared across runs and rule revisions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/rulecover/internal/engine"
	"github.com/papapumpkin/rulecover/internal/pattern"
)

// Sentinel errors for run lookups.
var (
	// ErrNoRuns is returned by LatestRun when the database holds no runs.
	ErrNoRuns = errors.New("store: no runs recorded")
	// ErrRunNotFound is returned by Run for an unknown run id.
	ErrRunNotFound = errors.New("store: run not found")
)

// schema contains the DDL executed on open. Using IF NOT EXISTS makes it safe
// to run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    rules_path  TEXT NOT NULL,
    started_at  TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    lines       INTEGER NOT NULL DEFAULT 0,
    covered     INTEGER NOT NULL DEFAULT 0,
    uncovered   INTEGER NOT NULL DEFAULT 0,
    failed      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS rules (
    run_id  TEXT NOT NULL,
    rule_id INTEGER NOT NULL,
    pattern TEXT NOT NULL,
    comment TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, rule_id)
);

CREATE TABLE IF NOT EXISTS lines (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id    TEXT NOT NULL,
    source    TEXT NOT NULL DEFAULT '',
    line_no   INTEGER NOT NULL,
    text      TEXT NOT NULL,
    covered   BOOLEAN NOT NULL,
    coverages INTEGER NOT NULL DEFAULT 0,
    lrlm      TEXT NOT NULL DEFAULT '',
    error     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS segments (
    line_id INTEGER NOT NULL,
    run_id  TEXT NOT NULL,
    rule_id INTEGER NOT NULL,
    words   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lines_run ON lines(run_id);
CREATE INDEX IF NOT EXISTS idx_segments_run_rule ON segments(run_id, rule_id);
`

// Run is the summary row of one coverage run.
type Run struct {
	ID         string
	RulesPath  string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Lines      int
	Covered    int
	Uncovered  int
	Failed     int
}

// RuleUsage reports how many LRLM segments a rule produced in a run.
type RuleUsage struct {
	RuleID  int
	Pattern string
	Comment string
	Uses    int
}

// LineRecord is a stored line without coverage.
type LineRecord struct {
	Source string
	LineNo int
	Text   string
	Error  string
}

// Store is a SQLite-backed results database in WAL mode.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, enables WAL mode and busy
// timeout, and creates the schema if it does not exist.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite has a single writer; one connection keeps the pragmas in force.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// BeginRun inserts the row of a new run.
func (s *Store) BeginRun(ctx context.Context, runID, rulesPath string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, rules_path, started_at) VALUES (?, ?, ?)`,
		runID, rulesPath, time.Now().UTC()); err != nil {
		return fmt.Errorf("store: begin run %s: %w", runID, err)
	}
	return nil
}

// RecordRules stores the rule listing the run was made with.
func (s *Store) RecordRules(ctx context.Context, runID string, entries []pattern.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on error paths

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (run_id, rule_id, pattern, comment) VALUES (?, ?, ?, ?)`,
			runID, e.RuleID, e.Pattern(), e.Comment); err != nil {
			return fmt.Errorf("store: insert rule %d: %w", e.RuleID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit rules: %w", err)
	}
	return nil
}

// RecordLine stores one line result and the segments of its LRLM coverages.
func (s *Store) RecordLine(ctx context.Context, runID string, r engine.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on error paths

	lrlm := make([]string, len(r.LRLM))
	for i, c := range r.LRLM {
		lrlm[i] = c.String()
	}
	var errText string
	if r.Err != nil {
		errText = r.Err.Error()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO lines (run_id, source, line_no, text, covered, coverages, lrlm, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Line.Source, r.Line.No, r.Line.Text, r.Covered(), len(r.All), strings.Join(lrlm, "\n"), errText)
	if err != nil {
		return fmt.Errorf("store: insert line %d: %w", r.Line.No, err)
	}
	lineID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("store: line id: %w", err)
	}

	for _, c := range r.LRLM {
		for _, seg := range c {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO segments (line_id, run_id, rule_id, words) VALUES (?, ?, ?, ?)`,
				lineID, runID, seg.Rule.RuleID, strings.Join(seg.Words, " ")); err != nil {
				return fmt.Errorf("store: insert segment: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit line %d: %w", r.Line.No, err)
	}
	return nil
}

// FinishRun stamps the run as finished and stores its totals, computed from
// the recorded lines.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	const q = `
		UPDATE runs SET
			finished_at = ?,
			lines     = (SELECT COUNT(*) FROM lines WHERE run_id = runs.id),
			covered   = (SELECT COUNT(*) FROM lines WHERE run_id = runs.id AND covered),
			failed    = (SELECT COUNT(*) FROM lines WHERE run_id = runs.id AND error != ''),
			uncovered = (SELECT COUNT(*) FROM lines WHERE run_id = runs.id AND NOT covered AND error = '')
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("store: finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	runs, err := s.runs(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// Run returns the run with the given id.
func (s *Store) Run(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, rules_path, started_at, finished_at, lines, covered, uncovered, failed
		 FROM runs WHERE id = ?`, runID).
		Scan(&r.ID, &r.RulesPath, &r.StartedAt, &r.FinishedAt, &r.Lines, &r.Covered, &r.Uncovered, &r.Failed)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("store: get run %s: %w", runID, err)
	}
	return r, nil
}

// Runs returns up to limit runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	return s.runs(ctx, limit)
}

func (s *Store) runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rules_path, started_at, finished_at, lines, covered, uncovered, failed
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.RulesPath, &r.StartedAt, &r.FinishedAt,
			&r.Lines, &r.Covered, &r.Uncovered, &r.Failed); err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	return out, nil
}

// RuleUsage returns every rule of the run with its LRLM segment count,
// ordered by rule id. Unused rules have zero uses.
func (s *Store) RuleUsage(ctx context.Context, runID string) ([]RuleUsage, error) {
	const q = `
		SELECT r.rule_id, r.pattern, r.comment, COUNT(g.rule_id)
		FROM rules r
		LEFT JOIN segments g ON g.run_id = r.run_id AND g.rule_id = r.rule_id
		WHERE r.run_id = ?
		GROUP BY r.rule_id, r.pattern, r.comment
		ORDER BY r.rule_id`
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("store: rule usage: %w", err)
	}
	defer rows.Close()

	var out []RuleUsage
	for rows.Next() {
		var u RuleUsage
		if err := rows.Scan(&u.RuleID, &u.Pattern, &u.Comment, &u.Uses); err != nil {
			return nil, fmt.Errorf("store: scan rule usage: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rule usage: %w", err)
	}
	return out, nil
}

// Uncovered returns the lines of the run that have no coverage, including
// lines whose search failed, in recording order.
func (s *Store) Uncovered(ctx context.Context, runID string) ([]LineRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, line_no, text, error FROM lines
		 WHERE run_id = ? AND NOT covered ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("store: uncovered lines: %w", err)
	}
	defer rows.Close()

	var out []LineRecord
	for rows.Next() {
		var l LineRecord
		if err := rows.Scan(&l.Source, &l.LineNo, &l.Text, &l.Error); err != nil {
			return nil, fmt.Errorf("store: scan line: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: uncovered lines: %w", err)
	}
	return out, nil
}
