package harness

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixture is a Test wired for in-process assertions: no chdir, captured
// output, and an exit hook that records the code.
type fixture struct {
	*Test
	out    *bytes.Buffer
	errOut *bytes.Buffer
	code   int
	exited bool
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, code: -1}
	base := []Option{
		WithWorkdir(t.TempDir()),
		WithoutChdir(),
		WithOutput(f.out, f.errOut),
		WithConfig(Config{}),
		WithExit(func(code int) {
			f.code = code
			f.exited = true
		}),
	}
	h, err := New(append(base, opts...)...)
	require.NoError(t, err)
	f.Test = h
	return f
}

// terminates runs fn and returns the Status it terminated with, or
// StatusRunning if it returned normally.
func (f *fixture) terminates(fn func()) (s Status) {
	defer func() {
		if r := recover(); r != nil {
			term, ok := r.(Terminated)
			if !ok {
				panic(r)
			}
			s = term.Status
		}
	}()
	fn()
	return StatusRunning
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, f.WriteFile(name, content))
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
}

// script writes an executable shell script into the fixture's workdir.
func (f *fixture) script(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(f.Workdir(), name)
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}
