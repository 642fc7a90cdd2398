package testcmd

import (
	"context"
	"io"
	"strings"
)

// Mode selects how file contents are read.
type Mode int

const (
	// Binary returns the raw bytes of the file.
	Binary Mode = iota
	// Text translates "\r\n" and "\r" line endings to "\n".
	Text
)

// String returns the open-mode spelling used in diagnostics.
func (m Mode) String() string {
	if m == Text {
		return "r"
	}
	return "rb"
}

// Command describes one program invocation.
type Command struct {
	// Program is the executable or script to run.
	Program string

	// Interpreter, when set, is run with Program as its first argument
	// (e.g. []string{"python3", "-u"}).
	Interpreter []string

	// Args are passed verbatim after Program.
	Args []string

	// Stdin is written to the process before its input is closed by Wait.
	Stdin string

	// Env is appended to the inherited environment.
	Env []string

	// UniversalNewlines translates "\r\n" to "\n" in captured output.
	UniversalNewlines bool
}

// Argv returns the full argument vector: interpreter, program, arguments.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Interpreter)+1+len(c.Args))
	argv = append(argv, c.Interpreter...)
	argv = append(argv, c.Program)
	argv = append(argv, c.Args...)
	return argv
}

// Result is the captured outcome of a finished process.
type Result struct {
	Stdout string
	Stderr string
	Status int
}

// Process is a running program started by a Collaborator.
//
// Writes go to the program's standard input. Wait closes standard input,
// blocks until the program exits and returns whatever output was captured;
// on error the returned Result holds the partial output.
type Process interface {
	io.Writer
	Command() Command
	Wait() (*Result, error)
	Kill() error
}

// Collaborator spawns programs and answers filesystem queries relative to
// a working directory.
type Collaborator interface {
	Workdir() string
	Start(ctx context.Context, cmd Command) (Process, error)
	Exists(path string) bool
	IsSymlink(path string) bool
	Read(path string, mode Mode) (string, error)
	Size(path string) (int64, error)
	Writable(path string) (bool, error)
	Cleanup() error
}

// TranslateNewlines converts "\r\n" and lone "\r" to "\n".
func TranslateNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
