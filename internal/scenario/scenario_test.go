package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cmdtest/internal/harness"
	"github.com/roach88/cmdtest/internal/platform"
)

func TestParse_Minimal(t *testing.T) {
	s, err := Parse([]byte(`
name: test_version
program: mytool
steps:
  - run:
      arguments: --version
`))
	require.NoError(t, err)
	assert.Equal(t, "test_version", s.Name)
	assert.Equal(t, DefaultClass, s.Class)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "run", s.Steps[0].Kind())
}

func TestParse_RunExpectationDefaults(t *testing.T) {
	s, err := Parse([]byte(`
name: defaults
program: mytool
steps:
  - run: {}
  - run:
      stdout: "hi\n"
      stderr: null
      status: null
  - run:
      stderr: "warn\n"
      status: 3
`))
	require.NoError(t, err)

	absent := s.Steps[0].Run
	assert.Nil(t, absent.Stdout)
	require.NotNil(t, absent.Stderr)
	assert.Equal(t, "", *absent.Stderr)
	require.NotNil(t, absent.Status)
	assert.Equal(t, 0, *absent.Status)

	null := s.Steps[1].Run
	require.NotNil(t, null.Stdout)
	assert.Equal(t, "hi\n", *null.Stdout)
	assert.Nil(t, null.Stderr)
	assert.Nil(t, null.Status)

	set := s.Steps[2].Run
	assert.Equal(t, "warn\n", *set.Stderr)
	assert.Equal(t, 3, *set.Status)
}

func TestParse_ArgsStringOrList(t *testing.T) {
	s, err := Parse([]byte(`
name: args
program: mytool
steps:
  - run:
      options: "-v --fast"
      arguments: ["file one.txt", two]
`))
	require.NoError(t, err)
	r := s.Steps[0].Run
	assert.False(t, r.Options.IsList())
	assert.Equal(t, []string{"-v", "--fast"}, r.Options.Tokens())
	assert.True(t, r.Arguments.IsList())

	merged := harness.OptionsArguments(r.Options.Args, r.Arguments.Args)
	assert.Equal(t, []string{"-v", "--fast", "file one.txt", "two"}, merged.Tokens())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "program: x\nsteps:\n  - must_exist: [a]\n",
			wantErr: "name is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\nprogram: x\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown top-level field",
			yaml:    "name: n\nprogram: x\nstep:\n  - must_exist: [a]\n",
			wantErr: "field step not found",
		},
		{
			name:    "unknown run field",
			yaml:    "name: n\nprogram: x\nsteps:\n  - run:\n      stdot: hi\n",
			wantErr: "field stdot not found",
		},
		{
			name:    "two actions in one step",
			yaml:    "name: n\nsteps:\n  - must_exist: [a]\n    must_not_exist: [b]\n",
			wantErr: "more than one action",
		},
		{
			name:    "empty step",
			yaml:    "name: n\nsteps:\n  - {}\n",
			wantErr: "steps[0]: no action",
		},
		{
			name:    "run without program",
			yaml:    "name: n\nsteps:\n  - run: {}\n",
			wantErr: "program is required",
		},
		{
			name:    "bad match function",
			yaml:    "name: n\nmatch: fuzzy\nsteps:\n  - must_exist: [a]\n",
			wantErr: `unknown match function "fuzzy"`,
		},
		{
			name:    "bad mode",
			yaml:    "name: n\nsteps:\n  - must_contain: {file: a, text: b, mode: rw}\n",
			wantErr: `unknown mode "rw"`,
		},
		{
			name:    "arguments as mapping",
			yaml:    "name: n\nprogram: x\nsteps:\n  - run:\n      arguments: {a: b}\n",
			wantErr: "must be a string or a list",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ResolvesPaths(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "greet", "greet.yaml"))
	require.NoError(t, err)

	dir, err := filepath.Abs(filepath.Join("testdata", "greet"))
	require.NoError(t, err)
	assert.Equal(t, dir, s.Dir)
	assert.Equal(t, filepath.Join(dir, "greet.sh"), s.Program)
	assert.Equal(t, filepath.Join(dir, "fixtures.txtar"), s.Fixtures)
	assert.Equal(t, filepath.Join(dir, "expected.txt"), s.Steps[4].MustMatchFile.Golden)
	assert.Equal(t, "Greet", s.Class)
}

func TestLoad_PathProgramUntouched(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(p, []byte("name: n\nprogram: sh\nsteps:\n  - must_exist: [a]\n"), 0o644))

	s, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "sh", s.Program)
}

func TestLoad_ValidationErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("steps: []\n"), 0o644))

	_, err := Load(p)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, p, ve.Path)
	assert.Contains(t, err.Error(), p)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yaml", "sub/c.yaml", "skip.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	got, err := Glob(filepath.Join(dir, "**", "*.yaml"), filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "sub", "c.yaml"),
	}, got)

	_, err = Glob(filepath.Join(dir, "*.json"))
	assert.ErrorContains(t, err, "no scenario files match")
}

func TestExpand(t *testing.T) {
	exe := platform.Current.ExeSuffix

	tests := []struct {
		in   string
		want string
	}{
		{"hello", "hello"},
		{"hello${EXE_SUFFIX}", "hello" + exe},
		{"bin/$EXE_SUFFIX", "bin/" + exe},
		{"${NOT_A_SUFFIX}/x", "${NOT_A_SUFFIX}/x"},
		{"$HOME/x", "$HOME/x"},
		{"cost: $5 and $", "cost: $5 and $"},
		{"$$EXE_SUFFIX", "$" + exe},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, expand(tt.in))
		})
	}
}
