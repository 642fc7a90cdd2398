package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cmdtest/internal/match"
	"github.com/roach88/cmdtest/internal/testcmd"
)

type runConfig struct {
	program           string
	interpreter       []string
	options           Args
	arguments         Args
	stdin             string
	env               []string
	universalNewlines bool

	stdout *string
	stderr *string
	status *int
	match  match.Func
}

// RunOption configures one invocation and its expectations.
type RunOption func(*runConfig)

// WithRunProgram overrides the Test's program for one invocation.
func WithRunProgram(program string) RunOption {
	return func(c *runConfig) { c.program = program }
}

// WithRunInterpreter overrides the Test's interpreter for one invocation.
func WithRunInterpreter(interpreter ...string) RunOption {
	return func(c *runConfig) { c.interpreter = interpreter }
}

// WithOptions sets options placed ahead of the arguments.
func WithOptions(a Args) RunOption {
	return func(c *runConfig) { c.options = a }
}

// WithArguments sets the program arguments.
func WithArguments(a Args) RunOption {
	return func(c *runConfig) { c.arguments = a }
}

// WithStdin feeds s to the program's standard input.
func WithStdin(s string) RunOption {
	return func(c *runConfig) { c.stdin = s }
}

// WithEnv adds KEY=VALUE pairs to the program's environment.
func WithEnv(kv ...string) RunOption {
	return func(c *runConfig) { c.env = append(c.env, kv...) }
}

// WithUniversalNewlines translates "\r\n" in captured output.
func WithUniversalNewlines() RunOption {
	return func(c *runConfig) { c.universalNewlines = true }
}

// ExpectStdout checks standard output. It is unchecked by default.
func ExpectStdout(s string) RunOption {
	return func(c *runConfig) { c.stdout = &s }
}

// ExpectStderr checks standard error. It must be empty by default.
func ExpectStderr(s string) RunOption {
	return func(c *runConfig) { c.stderr = &s }
}

// ExpectStatus checks the exit status. It must be 0 by default.
func ExpectStatus(n int) RunOption {
	return func(c *runConfig) { c.status = &n }
}

// IgnoreStdout disables the standard output check.
func IgnoreStdout() RunOption {
	return func(c *runConfig) { c.stdout = nil }
}

// IgnoreStderr disables the standard error check.
func IgnoreStderr() RunOption {
	return func(c *runConfig) { c.stderr = nil }
}

// IgnoreStatus disables the exit status check.
func IgnoreStatus() RunOption {
	return func(c *runConfig) { c.status = nil }
}

// WithRunMatch compares output with f instead of the Test's match function.
func WithRunMatch(f match.Func) RunOption {
	return func(c *runConfig) { c.match = f }
}

func (t *Test) runConfig(opts []RunOption) *runConfig {
	empty, zero := "", 0
	c := &runConfig{
		program:     t.program,
		interpreter: t.interpreter,
		stderr:      &empty,
		status:      &zero,
		match:       t.match,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *runConfig) command() testcmd.Command {
	return testcmd.Command{
		Program:           c.program,
		Interpreter:       c.interpreter,
		Args:              OptionsArguments(c.options, c.arguments).Tokens(),
		Stdin:             c.stdin,
		Env:               c.env,
		UniversalNewlines: c.universalNewlines,
	}
}

// Run invokes the program, waits for it and checks the outcome against
// the expectations. A mismatch terminates the test. The returned error is
// reserved for faults of the harness itself and is returned unchanged.
func (t *Test) Run(ctx context.Context, opts ...RunOption) error {
	c := t.runConfig(opts)
	proc, err := t.start(ctx, c)
	if err != nil {
		return err
	}
	return t.finish(ctx, proc, c)
}

// Start launches the program and returns while it is still running, so the
// caller can write to its standard input before calling Finish.
func (t *Test) Start(ctx context.Context, opts ...RunOption) (testcmd.Process, error) {
	return t.start(ctx, t.runConfig(opts))
}

// Finish waits for proc and applies the same checks as Run. Expectations
// are taken from opts; command options are ignored.
func (t *Test) Finish(ctx context.Context, proc testcmd.Process, opts ...RunOption) error {
	return t.finish(ctx, proc, t.runConfig(opts))
}

func (t *Test) start(ctx context.Context, c *runConfig) (testcmd.Process, error) {
	cmd := c.command()
	t.logger.Debug("starting program", "command", testcmd.CommandLine(cmd))

	proc, err := t.cmd.Start(ctx, cmd)
	if err != nil {
		if interrupted(ctx, err) {
			return nil, err
		}
		t.dumpStreams(t.last)
		fmt.Fprintf(t.errOut, "Exception trying to execute: %s\n", testcmd.CommandLine(cmd))
		return nil, err
	}
	return proc, nil
}

func (t *Test) finish(ctx context.Context, proc testcmd.Process, c *runConfig) error {
	res, err := proc.Wait()
	if err != nil {
		if interrupted(ctx, err) {
			return err
		}
		t.last = res
		t.dumpStreams(res)
		fmt.Fprintf(t.errOut, "Exception trying to execute: %s\n", testcmd.CommandLine(proc.Command()))
		return err
	}

	t.last = res
	t.logger.Debug("program finished", "status", res.Status, "stdout_bytes", len(res.Stdout), "stderr_bytes", len(res.Stderr))
	t.complete(proc.Command().Program, res, c.stdout, c.stderr, c.status, c.match)
	return nil
}

func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// complete is the three-way check shared by Run and Finish. A nil
// expectation skips its check.
func (t *Test) complete(program string, res *testcmd.Result, stdout, stderr *string, status *int, m match.Func) {
	if m == nil {
		m = match.Exact
	}

	if status != nil && res.Status != *status {
		fmt.Fprintf(t.out, "%s returned %d", program, res.Status)
		if *status != 0 {
			fmt.Fprintf(t.out, " (expected %d)", *status)
		}
		fmt.Fprintln(t.out)
		t.dumpStreams(res)
		t.fail("")
	}

	if stdout != nil && !m(res.Stdout, *stdout) {
		t.showDiff(*stdout, res.Stdout, "STDOUT ")
		if res.Stderr != "" {
			fmt.Fprintln(t.out, Banner("STDERR "))
			fmt.Fprintln(t.out, res.Stderr)
		}
		t.fail("")
	}

	if stderr != nil && !m(res.Stderr, *stderr) {
		fmt.Fprintln(t.out, Banner("STDOUT "))
		fmt.Fprintln(t.out, res.Stdout)
		t.showDiff(*stderr, res.Stderr, "STDERR ")
		t.fail("")
	}
}

func (t *Test) dumpStreams(res *testcmd.Result) {
	var stdout, stderr string
	if res != nil {
		stdout, stderr = res.Stdout, res.Stderr
	}
	fmt.Fprintln(t.out, Banner("STDOUT "))
	fmt.Fprintln(t.out, stdout)
	fmt.Fprintln(t.out, Banner("STDERR "))
	fmt.Fprintln(t.out, stderr)
}

func (t *Test) showDiff(want, got, name string) {
	fmt.Fprintln(t.out, Banner(name))
	t.diff(t.out, want, got, name)
}
