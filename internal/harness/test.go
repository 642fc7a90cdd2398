package harness

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/cmdtest/internal/match"
	"github.com/roach88/cmdtest/internal/testcmd"
)

// Exit statuses of a test script.
const (
	ExitPass     = 0
	ExitFail     = 1
	ExitNoResult = 2
)

// BannerWidth is the column Banner pads to.
const BannerWidth = 80

// Status is the terminal state of a Test.
type Status int

const (
	StatusRunning Status = iota
	StatusPass
	StatusFail
	StatusNoResult
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASSED"
	case StatusFail:
		return "FAILED"
	case StatusNoResult:
		return "NO RESULT"
	}
	return "RUNNING"
}

// ExitCode returns the process exit status for s.
func (s Status) ExitCode() int {
	switch s {
	case StatusFail:
		return ExitFail
	case StatusNoResult:
		return ExitNoResult
	}
	return ExitPass
}

// Terminated is the panic value raised after the exit function returns, so
// that a terminated test never runs another statement.
type Terminated struct {
	Status Status
}

func (e Terminated) Error() string {
	return fmt.Sprintf("test terminated: %s", e.Status)
}

// Test is one test script run against a program.
type Test struct {
	cmd         testcmd.Collaborator
	program     string
	interpreter []string
	workdir     string

	out    io.Writer
	errOut io.Writer
	exit   func(int)
	logger *slog.Logger

	match match.Func
	diff  match.Differ
	cfg   Config

	chdir   bool
	origDir string

	last   *testcmd.Result
	status Status
}

// Option configures a Test.
type Option func(*Test)

// WithProgram sets the program Run invokes by default.
func WithProgram(program string) Option {
	return func(t *Test) { t.program = program }
}

// WithInterpreter runs the program through an interpreter.
func WithInterpreter(interpreter ...string) Option {
	return func(t *Test) { t.interpreter = interpreter }
}

// WithCollaborator replaces the default testcmd.Local.
func WithCollaborator(c testcmd.Collaborator) Option {
	return func(t *Test) { t.cmd = c }
}

// WithWorkdir uses an existing directory instead of a fresh one.
func WithWorkdir(dir string) Option {
	return func(t *Test) { t.workdir = dir }
}

// WithOutput redirects diagnostics (default os.Stdout) and the
// PASSED/FAILED/NO RESULT verdict lines (default os.Stderr).
func WithOutput(out, errOut io.Writer) Option {
	return func(t *Test) {
		t.out = out
		t.errOut = errOut
	}
}

// WithExit replaces os.Exit. If the function returns, the harness panics
// with Terminated.
func WithExit(exit func(int)) Option {
	return func(t *Test) { t.exit = exit }
}

// WithLogger sets the logger for debug events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Test) { t.logger = l }
}

// WithMatch sets the default match function of Run and MustMatch.
func WithMatch(f match.Func) Option {
	return func(t *Test) { t.match = f }
}

// WithDiff sets how mismatches are rendered.
func WithDiff(d match.Differ) Option {
	return func(t *Test) { t.diff = d }
}

// WithConfig replaces the configuration read from the environment.
func WithConfig(c Config) Option {
	return func(t *Test) { t.cfg = c }
}

// WithoutChdir keeps the process working directory unchanged.
func WithoutChdir() Option {
	return func(t *Test) { t.chdir = false }
}

// New creates a Test, its working directory, and changes into it.
func New(opts ...Option) (*Test, error) {
	t := &Test{
		out:    os.Stdout,
		errOut: os.Stderr,
		exit:   os.Exit,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		match:  match.Exact,
		diff:   match.DetailedDiff,
		cfg:    ConfigFromEnv(),
		chdir:  true,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.cmd == nil {
		local, err := testcmd.NewLocal(t.workdir, t.logger)
		if err != nil {
			return nil, fmt.Errorf("create collaborator: %w", err)
		}
		t.cmd = local
	}

	if t.chdir {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		if err := os.Chdir(t.cmd.Workdir()); err != nil {
			return nil, fmt.Errorf("enter workdir: %w", err)
		}
		t.origDir = wd
	}

	t.logger.Debug("test created", "workdir", t.cmd.Workdir(), "program", t.program)
	return t, nil
}

// Workdir returns the test's working directory.
func (t *Test) Workdir() string {
	return t.cmd.Workdir()
}

// Collaborator returns the process and filesystem substrate.
func (t *Test) Collaborator() testcmd.Collaborator {
	return t.cmd
}

// Path resolves elems, joined, against the working directory.
func (t *Test) Path(elems ...string) string {
	p := filepath.Join(elems...)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(t.cmd.Workdir(), p)
}

// Subdir creates directories under the working directory.
func (t *Test) Subdir(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(t.Path(d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// WriteFile writes content to name under the working directory, creating
// parent directories as needed.
func (t *Test) WriteFile(name, content string) error {
	p := t.Path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Status returns the terminal state, or StatusRunning.
func (t *Test) Status() Status {
	return t.status
}

// Last returns the result of the most recent Run or Finish, or nil.
func (t *Test) Last() *testcmd.Result {
	return t.last
}

// Stdout returns the captured standard output of the last run.
func (t *Test) Stdout() string {
	if t.last == nil {
		return ""
	}
	return t.last.Stdout
}

// Stderr returns the captured standard error of the last run.
func (t *Test) Stderr() string {
	if t.last == nil {
		return ""
	}
	return t.last.Stderr
}

// Banner pads s with '=' to BannerWidth columns.
func Banner(s string) string {
	if n := BannerWidth - len(s); n > 0 {
		return s + strings.Repeat("=", n)
	}
	return s
}

// Pass ends the test successfully.
func (t *Test) Pass() {
	t.terminate(StatusPass, 0, "")
}

// FailTest ends the test as failed when condition holds.
func (t *Test) FailTest(condition bool, message string) {
	if condition {
		t.terminate(StatusFail, 0, message)
	}
}

// NoResult ends the test as inconclusive when condition holds.
func (t *Test) NoResult(condition bool, message string) {
	if condition {
		t.terminate(StatusNoResult, 0, message)
	}
}

// DefaultSkipMessage is printed by SkipTest callers with nothing better.
const DefaultSkipMessage = "Skipping test.\n"

// SkipTest prints message and ends the test as NoResult, or as Pass when
// the PassSkips toggle is on. fromFramework drops one more caller frame
// from the reported location, for skips requested by a helper on the test's
// behalf.
func (t *Test) SkipTest(message string, fromFramework bool) {
	if message != "" {
		io.WriteString(t.out, message)
		if !strings.HasSuffix(message, "\n") {
			io.WriteString(t.out, "\n")
		}
	}
	if t.cfg.PassSkips {
		t.Pass()
		return
	}
	skip := 0
	if fromFramework {
		skip = 1
	}
	t.terminate(StatusNoResult, skip, "")
}

// fail is the termination path of every failed assertion.
func (t *Test) fail(message string) {
	t.terminate(StatusFail, 0, message)
}

func (t *Test) terminate(s Status, skip int, message string) {
	if t.status != StatusRunning {
		panic(Terminated{Status: t.status})
	}
	t.status = s

	switch s {
	case StatusPass:
		io.WriteString(t.errOut, "PASSED\n")
	default:
		of := ""
		if t.program != "" {
			of = " of " + t.program
		}
		verdict := "FAILED test"
		if s == StatusNoResult {
			verdict = "NO RESULT for test"
		}
		fmt.Fprintf(t.errOut, "%s%s\n\t%s", verdict, of, callerTrace(skip))
		if message != "" {
			io.WriteString(t.errOut, message)
			if !strings.HasSuffix(message, "\n") {
				io.WriteString(t.errOut, "\n")
			}
		}
	}

	t.cleanup(s)
	t.logger.Debug("test terminated", "status", s.String(), "exit", s.ExitCode())
	t.exit(s.ExitCode())
	panic(Terminated{Status: s})
}

func (t *Test) cleanup(s Status) {
	if t.origDir != "" {
		if err := os.Chdir(t.origDir); err != nil {
			t.logger.Warn("restore working directory", "dir", t.origDir, "error", err)
		}
	}
	if t.cfg.preserve(s) {
		fmt.Fprintf(t.out, "Preserved directory %s\n", t.cmd.Workdir())
		return
	}
	if err := t.cmd.Cleanup(); err != nil {
		t.logger.Warn("remove workdir", "dir", t.cmd.Workdir(), "error", err)
	}
}
