// Package suite runs an ordered collection of test cases sequentially and
// reports each case's terminal outcome to a completion callback.
package suite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Outcome is the terminal state of one case.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	Error
	Skip
	ExpectedFailure
	UnexpectedSuccess
)

// Outcomes lists every outcome in declaration order.
var Outcomes = []Outcome{Pass, Fail, Error, Skip, ExpectedFailure, UnexpectedSuccess}

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Error:
		return "error"
	case Skip:
		return "skip"
	case ExpectedFailure:
		return "expected_failure"
	case UnexpectedSuccess:
		return "unexpected_success"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range Outcomes {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Failed reports whether o breaks the run.
func (o Outcome) Failed() bool {
	return o == Fail || o == Error || o == UnexpectedSuccess
}

// Case is one test: a method of a class.
type Case struct {
	Class         string
	Method        string
	ExpectFailure bool
	Func          func(*T) error
}

// ID returns "Class.Method".
func (c Case) ID() string {
	return c.Class + "." + c.Method
}

// Result is what a case ended with.
type Result struct {
	Outcome  Outcome
	Reason   string // skip reason
	Err      error  // cause of Error, or of an expected failure
	Messages []string
	Duration time.Duration
}

// Suite is an ordered collection of cases.
type Suite []Case

// Filter keeps the cases whose ID matches pattern. "*" stops at "/", so
// IDs are matched whole unless the pattern says otherwise.
func (s Suite) Filter(pattern string) (Suite, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid filter pattern %q", pattern)
	}
	var out Suite
	for _, c := range s {
		if ok, _ := doublestar.Match(pattern, c.ID()); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Runner executes suites.
type Runner struct {
	logger *slog.Logger
}

// NewRunner returns a Runner. A nil logger discards.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{logger: logger}
}

// Run executes the cases in order and calls done after each. Once ctx is
// cancelled no further case starts, a case that errored because of the
// cancellation is not reported, and ctx's error is returned.
func (r *Runner) Run(ctx context.Context, s Suite, done func(Case, Result)) error {
	for _, c := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := r.runCase(ctx, c)
		if ctx.Err() != nil && res.Err != nil {
			return ctx.Err()
		}
		r.logger.Debug("case finished", "case", c.ID(), "outcome", res.Outcome.String(), "duration", res.Duration)
		done(c, res)
	}
	return nil
}

type failNow struct{}

type skipNow struct{ reason string }

func (r *Runner) runCase(ctx context.Context, c Case) (res Result) {
	t := &T{ctx: ctx}
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		res.Messages = t.messages
	}()

	err := t.call(c.Func)
	switch {
	case t.skipped:
		return Result{Outcome: Skip, Reason: t.reason}
	case err != nil:
		if c.ExpectFailure {
			return Result{Outcome: ExpectedFailure, Err: err}
		}
		return Result{Outcome: Error, Err: err}
	case t.failed:
		if c.ExpectFailure {
			return Result{Outcome: ExpectedFailure}
		}
		return Result{Outcome: Fail}
	case c.ExpectFailure:
		return Result{Outcome: UnexpectedSuccess}
	}
	return Result{Outcome: Pass}
}

// T is handed to a case function.
type T struct {
	ctx      context.Context
	failed   bool
	skipped  bool
	reason   string
	messages []string
}

// call runs fn, turning FailNow and Skip into state and any other panic
// into an error.
func (t *T) call(fn func(*T) error) (err error) {
	defer func() {
		r := recover()
		switch v := r.(type) {
		case nil:
		case failNow:
		case skipNow:
			t.skipped = true
			t.reason = v.reason
		default:
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if fn == nil {
		return nil
	}
	return fn(t)
}

// Context returns the run's context.
func (t *T) Context() context.Context {
	return t.ctx
}

// Fail marks the case failed and continues.
func (t *T) Fail() {
	t.failed = true
}

// FailNow marks the case failed and stops it.
func (t *T) FailNow() {
	t.failed = true
	panic(failNow{})
}

// Failed reports whether the case has failed.
func (t *T) Failed() bool {
	return t.failed
}

// Errorf records a message and marks the case failed.
func (t *T) Errorf(format string, args ...any) {
	t.Logf(format, args...)
	t.Fail()
}

// Logf records a message.
func (t *T) Logf(format string, args ...any) {
	t.messages = append(t.messages, fmt.Sprintf(format, args...))
}

// Skip stops the case and reports it skipped for reason.
func (t *T) Skip(reason string) {
	panic(skipNow{reason: reason})
}
