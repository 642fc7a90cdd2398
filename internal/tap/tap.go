// Package tap reports suite outcomes as a TAP version 13 stream.
//
// Each case produces exactly one line, numbered in completion order:
//
//	ok 1     - Build.test_compile
//	not ok 2 - FAIL - Build.test_link
//	ok 3     - Build.test_strip  # SKIP  no strip on this host
package tap

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/cmdtest/internal/suite"
)

// Version is the first line of every stream.
const Version = "TAP version 13"

// Counter numbers the lines of one run. It is created by Runner.Run and
// handed to every completion; it is never reset.
type Counter struct {
	n int
}

// Next advances the counter and returns the new ordinal.
func (c *Counter) Next() int {
	c.n++
	return c.n
}

// Value returns the last ordinal handed out.
func (c *Counter) Value() int {
	return c.n
}

// Line formats the result line for ordinal n, without the newline.
func Line(n int, c suite.Case, r suite.Result) string {
	verb, category, directive := classify(r)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d", verb, n)
	if !strings.Contains(b.String(), "not") {
		b.WriteString("    ")
	}
	b.WriteString(" - ")
	if category != "" {
		b.WriteString(category)
		b.WriteString(" - ")
	}
	b.WriteString(c.ID())
	b.WriteString(directive)
	return b.String()
}

func classify(r suite.Result) (verb, category, directive string) {
	switch r.Outcome {
	case suite.Fail:
		return "not ok", "FAIL", ""
	case suite.Error:
		return "not ok", "ERROR", ""
	case suite.UnexpectedSuccess:
		return "not ok", "FAIL (unexpected success)", ""
	case suite.Skip:
		return "ok", "", "  # SKIP  " + r.Reason
	case suite.ExpectedFailure:
		return "ok", "", "  # TODO"
	}
	return "ok", "", ""
}

// Reporter writes lines to a stream, flushing after each.
type Reporter struct {
	w *bufio.Writer
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: bufio.NewWriter(w)}
}

// Header writes the version and plan lines.
func (r *Reporter) Header(total int) error {
	fmt.Fprintln(r.w, Version)
	fmt.Fprintf(r.w, "1..%d\n", total)
	return r.w.Flush()
}

// Record advances counter and writes the line for one completed case.
func (r *Reporter) Record(counter *Counter, c suite.Case, res suite.Result) (int, string, error) {
	n := counter.Next()
	line := Line(n, c, res)
	r.w.WriteString(line)
	r.w.WriteByte('\n')
	return n, line, r.w.Flush()
}

// Summary counts the outcomes of a run.
type Summary struct {
	Total  int
	Counts map[suite.Outcome]int
}

// OK reports whether no case failed, errored or unexpectedly succeeded.
func (s Summary) OK() bool {
	for o, n := range s.Counts {
		if n > 0 && o.Failed() {
			return false
		}
	}
	return true
}

// Recorded returns how many lines were written.
func (s Summary) Recorded() int {
	n := 0
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// RecordFunc observes each line after it is written.
type RecordFunc func(n int, line string, c suite.Case, r suite.Result) error

// Runner runs a suite and streams its TAP report.
type Runner struct {
	out      io.Writer
	runner   *suite.Runner
	logger   *slog.Logger
	observer RecordFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed to the suite runner.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithObserver calls fn after every written line. An error from fn stops
// the run.
func WithObserver(fn RecordFunc) Option {
	return func(r *Runner) { r.observer = fn }
}

// NewRunner returns a Runner writing to out.
func NewRunner(out io.Writer, opts ...Option) *Runner {
	r := &Runner{out: out, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(r)
	}
	r.runner = suite.NewRunner(r.logger)
	return r
}

// Run writes the header, runs s, and writes one line per case as it
// completes.
func (r *Runner) Run(ctx context.Context, s suite.Suite) (Summary, error) {
	rep := NewReporter(r.out)
	sum := Summary{Total: len(s), Counts: make(map[suite.Outcome]int)}
	if err := rep.Header(len(s)); err != nil {
		return sum, fmt.Errorf("write header: %w", err)
	}

	counter := &Counter{}
	var recErr error
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	err := r.runner.Run(runCtx, s, func(c suite.Case, res suite.Result) {
		if recErr != nil {
			return
		}
		n, line, err := rep.Record(counter, c, res)
		if err == nil && r.observer != nil {
			err = r.observer(n, line, c, res)
		}
		if err != nil {
			recErr = err
			cancel(err)
			return
		}
		sum.Counts[res.Outcome]++
	})
	if recErr != nil {
		return sum, fmt.Errorf("record result: %w", recErr)
	}
	return sum, err
}
