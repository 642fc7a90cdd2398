package testcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"mvdan.cc/sh/v3/syntax"
)

// WaitDelay bounds how long Wait keeps collecting output after the
// program is killed or exits while a descendant still holds its pipes.
var WaitDelay = 2 * time.Second

// Local is a Collaborator backed by the host operating system.
type Local struct {
	workdir string
	owned   bool
	logger  *slog.Logger
}

// NewLocal returns a Local rooted at workdir. An empty workdir creates a
// fresh directory under os.TempDir which Cleanup removes.
func NewLocal(workdir string, logger *slog.Logger) (*Local, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	owned := false
	if workdir == "" {
		workdir = filepath.Join(os.TempDir(), "cmdtest-"+uuid.NewString())
		if err := os.Mkdir(workdir, 0o755); err != nil {
			return nil, fmt.Errorf("create workdir: %w", err)
		}
		owned = true
	}

	abs, err := filepath.Abs(workdir)
	if err != nil {
		return nil, fmt.Errorf("resolve workdir: %w", err)
	}
	// macOS puts TempDir behind a symlink; report the real location.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	logger.Debug("workdir ready", "dir", abs, "owned", owned)
	return &Local{workdir: abs, owned: owned, logger: logger}, nil
}

// Workdir returns the absolute working directory.
func (l *Local) Workdir() string {
	return l.workdir
}

// Path resolves p against the working directory.
func (l *Local) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.workdir, p)
}

// Exists reports whether p exists, following symlinks.
func (l *Local) Exists(p string) bool {
	_, err := os.Stat(l.Path(p))
	return err == nil
}

// IsSymlink reports whether p is a symlink, dangling or not.
func (l *Local) IsSymlink(p string) bool {
	fi, err := os.Lstat(l.Path(p))
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeSymlink != 0
}

// Read returns the contents of p.
func (l *Local) Read(p string, mode Mode) (string, error) {
	data, err := os.ReadFile(l.Path(p))
	if err != nil {
		return "", err
	}
	if mode == Text {
		return TranslateNewlines(string(data)), nil
	}
	return string(data), nil
}

// Size returns the size of p in bytes.
func (l *Local) Size(p string) (int64, error) {
	fi, err := os.Stat(l.Path(p))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Writable reports whether the owner write bit of p is set.
func (l *Local) Writable(p string) (bool, error) {
	fi, err := os.Stat(l.Path(p))
	if err != nil {
		return false, err
	}
	return fi.Mode().Perm()&0o200 != 0, nil
}

// Cleanup removes the working directory if Local created it.
func (l *Local) Cleanup() error {
	if !l.owned {
		return nil
	}
	l.logger.Debug("removing workdir", "dir", l.workdir)
	return os.RemoveAll(l.workdir)
}

// Start launches cmd inside the working directory. The process is killed if
// ctx is cancelled before it exits.
func (l *Local) Start(ctx context.Context, cmd Command) (Process, error) {
	if cmd.Program == "" {
		return nil, errors.New("start: no program specified")
	}

	argv := cmd.Argv()
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = l.workdir
	c.WaitDelay = WaitDelay
	isolate(c)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}

	p := &localProcess{cmd: cmd, exec: c, ctx: ctx}
	c.Stdout = &p.stdout
	c.Stderr = &p.stderr

	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", CommandLine(cmd), err)
	}
	p.stdin = stdin

	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", CommandLine(cmd), err)
	}

	l.logger.Debug("process started", "argv", argv, "pid", c.Process.Pid)
	return p, nil
}

type localProcess struct {
	cmd    Command
	exec   *exec.Cmd
	ctx    context.Context
	stdin  io.WriteCloser
	stdout bytes.Buffer
	stderr bytes.Buffer
	done   bool
	result *Result
}

func (p *localProcess) Command() Command {
	return p.cmd
}

func (p *localProcess) Write(b []byte) (int, error) {
	return p.stdin.Write(b)
}

func (p *localProcess) Kill() error {
	if p.exec.Process == nil {
		return nil
	}
	return killGroup(p.exec.Process)
}

// Wait is idempotent; later calls return the first result.
func (p *localProcess) Wait() (*Result, error) {
	if p.done {
		return p.result, nil
	}

	if p.cmd.Stdin != "" {
		if _, err := io.WriteString(p.stdin, p.cmd.Stdin); err != nil && !errors.Is(err, syscall.EPIPE) && !errors.Is(err, os.ErrClosed) {
			return p.capture(0), fmt.Errorf("write stdin: %w", err)
		}
	}
	_ = p.stdin.Close()

	err := p.exec.Wait()
	if ctxErr := p.ctx.Err(); ctxErr != nil {
		return p.capture(-1), ctxErr
	}

	if errors.Is(err, exec.ErrWaitDelay) {
		// the program exited cleanly; a descendant kept its pipes open
		err = nil
	}

	status := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return p.capture(-1), fmt.Errorf("wait %s: %w", CommandLine(p.cmd), err)
		}
		status = exitErr.ExitCode()
	}

	p.done = true
	p.result = p.capture(status)
	return p.result, nil
}

func (p *localProcess) capture(status int) *Result {
	r := &Result{
		Stdout: p.stdout.String(),
		Stderr: p.stderr.String(),
		Status: status,
	}
	if p.cmd.UniversalNewlines {
		r.Stdout = TranslateNewlines(r.Stdout)
		r.Stderr = TranslateNewlines(r.Stderr)
	}
	return r
}

// CommandLine renders cmd as a shell-quoted string for diagnostics.
func CommandLine(cmd Command) string {
	argv := cmd.Argv()
	quoted := make([]string, len(argv))
	for i, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", a)
		}
		quoted[i] = q
	}
	return strings.Join(quoted, " ")
}
