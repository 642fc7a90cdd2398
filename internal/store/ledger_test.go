package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cmdtest/internal/suite"
)

func TestLedger_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	s.now = fixedClock(time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC))

	id, err := s.BeginRun(ctx, 3, "nightly")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	lines := []Result{
		{RunID: id, Ordinal: 1, CaseID: "A.one", Outcome: suite.Pass, Line: "ok 1     - A.one", Duration: 1500 * time.Millisecond},
		{RunID: id, Ordinal: 2, CaseID: "A.two", Outcome: suite.Skip, Line: "ok 2     - A.two  # SKIP  later", Reason: "later"},
		{RunID: id, Ordinal: 3, CaseID: "A.three", Outcome: suite.Fail, Line: "not ok 3 - FAIL - A.three"},
	}
	for _, r := range lines {
		require.NoError(t, s.RecordResult(ctx, r))
	}
	require.NoError(t, s.FinishRun(ctx, id))

	got, err := s.Results(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	run, err := s.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "nightly", run.Label)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 3, run.Recorded())
	assert.Equal(t, 1, run.Counts[suite.Fail])
	require.NotNil(t, run.FinishedAt)
	assert.True(t, run.FinishedAt.Equal(time.Date(2026, 10, 17, 9, 0, 1, 0, time.UTC)))
	assert.False(t, run.OK())
}

func TestRecordResult_DuplicateOrdinalKeepsFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.BeginRun(ctx, 1, "")
	require.NoError(t, err)
	require.NoError(t, s.RecordResult(ctx, Result{RunID: id, Ordinal: 1, CaseID: "A.x", Outcome: suite.Pass, Line: "first"}))
	require.NoError(t, s.RecordResult(ctx, Result{RunID: id, Ordinal: 1, CaseID: "A.x", Outcome: suite.Fail, Line: "second"}))

	got, err := s.Results(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Line)
}

func TestRecordResult_UnknownRunRejected(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordResult(context.Background(), Result{RunID: "missing", Ordinal: 1, CaseID: "A.x", Line: "ok 1"})
	assert.Error(t, err)
}

func TestFinishRun_Unknown(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRun_Unknown(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestResults_UnknownRunIsEmpty(t *testing.T) {
	s := createTestStore(t)
	got, err := s.Results(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := s.BeginRun(ctx, 0, "")
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, id))
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.True(t, runs[0].OK())

	runs, err = s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRun_OKRequiresFinishAndAllResults(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		run  Run
		want bool
	}{
		{"unfinished", Run{Total: 0}, false},
		{"incomplete", Run{Total: 2, FinishedAt: &now, Counts: map[suite.Outcome]int{suite.Pass: 1}}, false},
		{"passing", Run{Total: 2, FinishedAt: &now, Counts: map[suite.Outcome]int{suite.Pass: 1, suite.Skip: 1}}, true},
		{"unexpected success", Run{Total: 1, FinishedAt: &now, Counts: map[suite.Outcome]int{suite.UnexpectedSuccess: 1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run.OK())
		})
	}
}
