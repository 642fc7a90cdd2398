package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cmdtest/internal/suite"
)

// Run summarizes one recorded run.
type Run struct {
	ID         string                `json:"id"`
	Label      string                `json:"label,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Total      int                   `json:"total"`
	Counts     map[suite.Outcome]int `json:"-"`
}

// Recorded returns how many results the run holds.
func (r Run) Recorded() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// OK reports whether the run finished with every case recorded and none
// failed.
func (r Run) OK() bool {
	if r.FinishedAt == nil || r.Recorded() != r.Total {
		return false
	}
	for o, n := range r.Counts {
		if n > 0 && o.Failed() {
			return false
		}
	}
	return true
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, started_at, finished_at, total
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		if runs[i].Counts, err = s.counts(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// GetRun returns one run, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, started_at, finished_at, total
		FROM runs WHERE id = ?
	`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	if r.Counts, err = s.counts(ctx, r.ID); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Results returns a run's lines in ordinal order. An unknown run yields an
// empty slice.
func (s *Store) Results(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, ordinal, case_id, outcome, line, reason, duration_ms
		FROM results
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var (
			r       Result
			outcome string
			ms      int64
		)
		if err := rows.Scan(&r.RunID, &r.Ordinal, &r.CaseID, &outcome, &r.Line, &r.Reason, &ms); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Outcome, err = suite.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func (s *Store) counts(ctx context.Context, runID string) (map[suite.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*) FROM results WHERE run_id = ? GROUP BY outcome
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[suite.Outcome]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("count results: %w", err)
		}
		o, err := suite.ParseOutcome(name)
		if err != nil {
			return nil, fmt.Errorf("count results: %w", err)
		}
		counts[o] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Label, &started, &finished, &r.Total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", r.ID, err)
	}
	r.StartedAt = t
	if finished.Valid {
		f, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("scan run %s: finished_at: %w", r.ID, err)
		}
		r.FinishedAt = &f
	}
	return r, nil
}
