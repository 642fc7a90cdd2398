package suite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	id     string
	result Result
}

func collect(t *testing.T, s Suite) []recorded {
	t.Helper()
	var got []recorded
	err := NewRunner(nil).Run(context.Background(), s, func(c Case, r Result) {
		got = append(got, recorded{id: c.ID(), result: r})
	})
	require.NoError(t, err)
	return got
}

func TestRun_Outcomes(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		c      Case
		want   Outcome
		reason string
	}{
		{name: "return nil", c: Case{Func: func(*T) error { return nil }}, want: Pass},
		{name: "nil func", c: Case{}, want: Pass},
		{name: "fail", c: Case{Func: func(t *T) error { t.Fail(); return nil }}, want: Fail},
		{name: "fail now", c: Case{Func: func(t *T) error { t.FailNow(); return nil }}, want: Fail},
		{name: "errorf", c: Case{Func: func(t *T) error { t.Errorf("bad %d", 1); return nil }}, want: Fail},
		{name: "returned error", c: Case{Func: func(*T) error { return boom }}, want: Error},
		{name: "panic", c: Case{Func: func(*T) error { panic("oops") }}, want: Error},
		{name: "skip", c: Case{Func: func(t *T) error { t.Skip("not today"); return nil }}, want: Skip, reason: "not today"},
		{
			name: "expected failure",
			c:    Case{ExpectFailure: true, Func: func(t *T) error { t.FailNow(); return nil }},
			want: ExpectedFailure,
		},
		{
			name: "expected failure by error",
			c:    Case{ExpectFailure: true, Func: func(*T) error { return boom }},
			want: ExpectedFailure,
		},
		{
			name: "unexpected success",
			c:    Case{ExpectFailure: true, Func: func(*T) error { return nil }},
			want: UnexpectedSuccess,
		},
		{
			name: "skip wins over expected failure",
			c:    Case{ExpectFailure: true, Func: func(t *T) error { t.Skip("later"); return nil }},
			want: Skip, reason: "later",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.c.Class, tt.c.Method = "C", "m"
			got := collect(t, Suite{tt.c})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].result.Outcome)
			assert.Equal(t, tt.reason, got[0].result.Reason)
		})
	}
}

func TestRun_ErrorKeepsCause(t *testing.T) {
	boom := errors.New("boom")
	got := collect(t, Suite{{Class: "C", Method: "m", Func: func(*T) error { return boom }}})
	assert.ErrorIs(t, got[0].result.Err, boom)

	got = collect(t, Suite{{Class: "C", Method: "m", Func: func(*T) error { panic("oops") }}})
	assert.EqualError(t, got[0].result.Err, "panic: oops")
}

func TestRun_Messages(t *testing.T) {
	got := collect(t, Suite{{Class: "C", Method: "m", Func: func(t *T) error {
		t.Logf("step %d", 1)
		t.Errorf("want %q", "x")
		return nil
	}}})
	assert.Equal(t, []string{"step 1", `want "x"`}, got[0].result.Messages)
}

func TestRun_Order(t *testing.T) {
	s := Suite{
		{Class: "A", Method: "one"},
		{Class: "A", Method: "two"},
		{Class: "B", Method: "one"},
	}
	got := collect(t, s)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.id
	}
	assert.Equal(t, []string{"A.one", "A.two", "B.one"}, ids)
}

func TestRun_CancelStopsBeforeNextCase(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	s := Suite{
		{Class: "A", Method: "first", Func: func(*T) error { ran = append(ran, "first"); cancel(); return nil }},
		{Class: "A", Method: "second", Func: func(*T) error { ran = append(ran, "second"); return nil }},
	}

	var reported int
	err := NewRunner(nil).Run(ctx, s, func(Case, Result) { reported++ })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"first"}, ran)
	assert.Equal(t, 1, reported)
}

func TestRun_InterruptedCaseIsNotReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := Suite{{Class: "A", Method: "slow", Func: func(t *T) error {
		cancel()
		return t.Context().Err()
	}}}

	var reported int
	err := NewRunner(nil).Run(ctx, s, func(Case, Result) { reported++ })
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reported)
}

func TestSuite_Filter(t *testing.T) {
	s := Suite{
		{Class: "Build", Method: "compile"},
		{Class: "Build", Method: "link"},
		{Class: "Install", Method: "copy"},
	}

	got, err := s.Filter("Build.*")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Filter("*.{copy,link}")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.Filter("[")
	assert.Error(t, err)
}

func TestOutcome_StringRoundTrip(t *testing.T) {
	for _, o := range Outcomes {
		got, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}
	_, err := ParseOutcome("maybe")
	assert.Error(t, err)
}

func TestOutcome_Failed(t *testing.T) {
	assert.False(t, Pass.Failed())
	assert.False(t, Skip.Failed())
	assert.False(t, ExpectedFailure.Failed())
	assert.True(t, Fail.Failed())
	assert.True(t, Error.Failed())
	assert.True(t, UnexpectedSuccess.Failed())
}
