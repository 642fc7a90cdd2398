package scenario

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"golang.org/x/tools/txtar"

	"github.com/roach88/cmdtest/internal/harness"
	"github.com/roach88/cmdtest/internal/logger"
	"github.com/roach88/cmdtest/internal/match"
	"github.com/roach88/cmdtest/internal/suite"
	"github.com/roach88/cmdtest/internal/testcmd"
)

type caseConfig struct {
	logger *slog.Logger
	cfg    harness.Config
	diff   match.Differ
	output io.Writer
}

// CaseOption configures how a scenario runs.
type CaseOption func(*caseConfig)

// WithLogger sets the logger handed to the harness.
func WithLogger(l *slog.Logger) CaseOption {
	return func(c *caseConfig) { c.logger = l }
}

// WithConfig replaces the skip and preserve toggles read from the
// environment.
func WithConfig(cfg harness.Config) CaseOption {
	return func(c *caseConfig) { c.cfg = cfg }
}

// WithDiff sets how mismatches are rendered.
func WithDiff(d match.Differ) CaseOption {
	return func(c *caseConfig) { c.diff = d }
}

// WithOutput also copies the harness diagnostics of every scenario to w.
func WithOutput(w io.Writer) CaseOption {
	return func(c *caseConfig) { c.output = w }
}

// Case converts s into a suite case. The harness exit status decides the
// outcome: ExitPass passes, ExitFail fails, ExitNoResult skips, and a
// fault of the harness itself is an error.
func Case(s *Scenario, opts ...CaseOption) suite.Case {
	c := &caseConfig{
		logger: logger.Discard(),
		cfg:    harness.ConfigFromEnv(),
		diff:   match.DetailedDiff,
	}
	for _, opt := range opts {
		opt(c)
	}

	return suite.Case{
		Class:         s.Class,
		Method:        s.Name,
		ExpectFailure: s.ExpectFailure,
		Func: func(t *suite.T) error {
			if s.Skip != "" {
				t.Skip(s.Skip)
			}
			return c.run(t, s)
		},
	}
}

func (c *caseConfig) run(t *suite.T, s *Scenario) error {
	var buf bytes.Buffer
	var out io.Writer = &buf
	if c.output != nil {
		out = io.MultiWriter(&buf, c.output)
	}

	m, err := match.Lookup(s.Match)
	if err != nil {
		return err
	}

	code := -1
	h, err := harness.New(
		harness.WithProgram(s.Program),
		harness.WithInterpreter(s.Interpreter...),
		harness.WithOutput(out, out),
		harness.WithExit(func(n int) { code = n }),
		harness.WithLogger(c.logger.With("scenario", s.Name)),
		harness.WithMatch(m),
		harness.WithDiff(c.diff),
		harness.WithConfig(c.cfg),
		harness.WithoutChdir(),
	)
	if err != nil {
		return fmt.Errorf("set up %s: %w", s.Name, err)
	}

	ex := &executor{h: h, s: s}
	if err := ex.execute(t.Context()); err != nil {
		if cerr := h.Collaborator().Cleanup(); cerr != nil {
			c.logger.Warn("remove workdir", "dir", h.Workdir(), "error", cerr)
		}
		if buf.Len() > 0 {
			t.Logf("%s", buf.String())
		}
		return err
	}

	switch code {
	case harness.ExitPass:
		return nil
	case harness.ExitNoResult:
		t.Skip(ex.skipReason)
	default:
		t.Logf("%s", buf.String())
		t.FailNow()
	}
	return nil
}

type executor struct {
	h          *harness.Test
	s          *Scenario
	skipReason string
}

// execute prepares the working directory and runs every step. It returns
// only after the harness has terminated, or with a fault that kept it from
// judging.
func (e *executor) execute(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(harness.Terminated); !ok {
				panic(r)
			}
		}
	}()

	if err := e.prepare(); err != nil {
		return err
	}
	for i, st := range e.s.Steps {
		if err := e.step(ctx, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Kind(), err)
		}
	}
	e.h.Pass()
	return nil
}

func (e *executor) prepare() error {
	if e.s.Fixtures != "" {
		ar, err := txtar.ParseFile(e.s.Fixtures)
		if err != nil {
			return fmt.Errorf("read fixtures: %w", err)
		}
		for _, f := range ar.Files {
			if err := e.h.WriteFile(f.Name, string(f.Data)); err != nil {
				return err
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(e.s.Files)) {
		if err := e.h.WriteFile(expand(name), e.s.Files[name]); err != nil {
			return err
		}
	}
	return nil
}

func (e *executor) step(ctx context.Context, st Step) error {
	h := e.h
	switch {
	case st.Run != nil:
		return h.Run(ctx, runOptions(st.Run)...)
	case st.MustExist != nil:
		h.MustExist(expandAll(st.MustExist)...)
	case st.MustNotExist != nil:
		h.MustNotExist(expandAll(st.MustNotExist)...)
	case st.MustContain != nil:
		h.MustContain(expand(st.MustContain.File), st.MustContain.Text, containOptions(st.MustContain)...)
	case st.MustNotContain != nil:
		h.MustNotContain(expand(st.MustNotContain.File), st.MustNotContain.Text, containOptions(st.MustNotContain)...)
	case st.MustMatch != nil:
		h.MustMatch(expand(st.MustMatch.File), st.MustMatch.Content, matchOptions(st.MustMatch)...)
	case st.MustMatchFile != nil:
		h.MustMatchFile(expand(st.MustMatchFile.File), st.MustMatchFile.Golden, matchOptions(st.MustMatchFile)...)
	case st.MustContainExactlyLines != nil:
		return e.exactlyLines(st.MustContainExactlyLines)
	case st.MustNotBeEmpty != "":
		h.MustNotBeEmpty(expand(st.MustNotBeEmpty))
	case st.Skip != "":
		e.skipReason = st.Skip
		h.SkipTest(st.Skip, true)
	}
	return nil
}

func (e *executor) exactlyLines(l *LinesStep) error {
	var output string
	switch l.Output {
	case "stdout":
		output = e.h.Stdout()
	case "stderr":
		output = e.h.Stderr()
	default:
		data, err := e.h.Collaborator().Read(expand(l.Output), testcmd.Text)
		if err != nil {
			return fmt.Errorf("read %s: %w", l.Output, err)
		}
		output = data
	}

	opts := []harness.CheckOption{harness.WithTitle(strings.ToUpper(l.Output))}
	if l.Regexp {
		opts = append(opts, harness.WithLineFinder(match.RegexpLineFinder()))
	}
	e.h.MustContainExactlyLines(output, l.Lines, opts...)
	return nil
}

func runOptions(r *RunStep) []harness.RunOption {
	opts := []harness.RunOption{
		harness.WithOptions(r.Options.Args),
		harness.WithArguments(r.Arguments.Args),
		harness.WithStdin(r.Stdin),
		harness.IgnoreStdout(),
		harness.IgnoreStderr(),
		harness.IgnoreStatus(),
	}
	if r.Program != "" {
		opts = append(opts, harness.WithRunProgram(r.Program))
	}
	for _, k := range slices.Sorted(maps.Keys(r.Env)) {
		opts = append(opts, harness.WithEnv(k+"="+os.ExpandEnv(r.Env[k])))
	}
	if r.UniversalNewlines {
		opts = append(opts, harness.WithUniversalNewlines())
	}
	if r.Stdout != nil {
		opts = append(opts, harness.ExpectStdout(*r.Stdout))
	}
	if r.Stderr != nil {
		opts = append(opts, harness.ExpectStderr(*r.Stderr))
	}
	if r.Status != nil {
		opts = append(opts, harness.ExpectStatus(*r.Status))
	}
	if r.Match != "" {
		if m, err := match.Lookup(r.Match); err == nil {
			opts = append(opts, harness.WithRunMatch(m))
		}
	}
	return opts
}

func containOptions(c *ContainStep) []harness.CheckOption {
	mode, _ := parseMode(c.Mode)
	opts := []harness.CheckOption{harness.InMode(mode)}
	if c.Regexp {
		opts = append(opts, harness.WithFinder(match.RegexpFinder()))
	}
	return opts
}

func matchOptions(m *MatchStep) []harness.CheckOption {
	mode, _ := parseMode(m.Mode)
	opts := []harness.CheckOption{harness.InMode(mode)}
	if m.Match != "" {
		if f, err := match.Lookup(m.Match); err == nil {
			opts = append(opts, harness.WithMatcher(f))
		}
	}
	return opts
}

func parseMode(s string) (testcmd.Mode, error) {
	switch s {
	case "", "binary":
		return testcmd.Binary, nil
	case "text":
		return testcmd.Text, nil
	}
	return testcmd.Binary, fmt.Errorf("unknown mode %q", s)
}

func expandAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = expand(p)
	}
	return out
}
