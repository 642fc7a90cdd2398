package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cmdtest/internal/suite"
)

// timeLayout is fixed-width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Result is one recorded TAP line.
type Result struct {
	RunID    string
	Ordinal  int
	CaseID   string
	Outcome  suite.Outcome
	Line     string
	Reason   string
	Duration time.Duration
}

// BeginRun records the start of a run of total cases and returns its ID.
func (s *Store) BeginRun(ctx context.Context, total int, label string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, total, label)
		VALUES (?, ?, ?, ?)
	`, id, s.now().UTC().Format(timeLayout), total, label)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordResult stores one line of a run. Recording the same ordinal twice
// keeps the first.
func (s *Store) RecordResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, ordinal, case_id, outcome, line, reason, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, ordinal) DO NOTHING
	`,
		r.RunID,
		r.Ordinal,
		r.CaseID,
		r.Outcome.String(),
		r.Line,
		r.Reason,
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time.
func (s *Store) FinishRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ? WHERE id = ?
	`, s.now().UTC().Format(timeLayout), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}
