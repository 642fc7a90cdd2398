package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanner(t *testing.T) {
	b := Banner("STDOUT ")
	assert.Len(t, b, BannerWidth)
	assert.True(t, strings.HasPrefix(b, "STDOUT ="))
	assert.Equal(t, strings.Repeat("x", 90), Banner(strings.Repeat("x", 90)))
}

func TestStatus_ExitCode(t *testing.T) {
	assert.Equal(t, ExitPass, StatusPass.ExitCode())
	assert.Equal(t, ExitFail, StatusFail.ExitCode())
	assert.Equal(t, ExitNoResult, StatusNoResult.ExitCode())
}

func TestPass(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, StatusPass, f.terminates(f.Pass))
	assert.Equal(t, ExitPass, f.code)
	assert.Equal(t, "PASSED\n", f.errOut.String())
	assert.Equal(t, StatusPass, f.Status())
}

func TestTerminate_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, StatusPass, f.terminates(f.Pass))
	f.exited = false

	assert.Equal(t, StatusPass, f.terminates(func() { f.FailTest(true, "late") }))
	assert.False(t, f.exited)
	assert.Equal(t, "PASSED\n", f.errOut.String())
}

func TestFailTest(t *testing.T) {
	f := newFixture(t, WithProgram("mytool"))

	assert.Equal(t, StatusRunning, f.terminates(func() { f.FailTest(false, "never") }))

	s := f.terminates(func() { f.FailTest(true, "broken invariant") })
	require.Equal(t, StatusFail, s)
	assert.Equal(t, ExitFail, f.code)

	errOut := f.errOut.String()
	assert.True(t, strings.HasPrefix(errOut, "FAILED test of mytool\n\tat line "), errOut)
	assert.Contains(t, errOut, "harness_test.go")
	assert.True(t, strings.HasSuffix(errOut, "broken invariant\n"), errOut)
}

func TestNoResult(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, StatusRunning, f.terminates(func() { f.NoResult(false, "") }))
	assert.Equal(t, StatusNoResult, f.terminates(func() { f.NoResult(true, "no compiler") }))
	assert.Equal(t, ExitNoResult, f.code)
	assert.True(t, strings.HasPrefix(f.errOut.String(), "NO RESULT for test\n\tat line "))
}

func TestSkipTest(t *testing.T) {
	tests := []struct {
		name      string
		passSkips bool
		want      Status
		code      int
	}{
		{name: "skips are no result", want: StatusNoResult, code: ExitNoResult},
		{name: "skips pass when configured", passSkips: true, want: StatusPass, code: ExitPass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, WithConfig(Config{PassSkips: tt.passSkips}))

			s := f.terminates(func() { f.SkipTest("no network", false) })
			assert.Equal(t, tt.want, s)
			assert.Equal(t, tt.code, f.code)
			assert.NotEqual(t, ExitFail, f.code)
			assert.Equal(t, "no network\n", f.out.String())
		})
	}
}

func TestSkipTest_FromFrameworkDropsHelperFrame(t *testing.T) {
	skipper := func(f *fixture) { f.SkipTest(DefaultSkipMessage, true) }

	f := newFixture(t)
	require.Equal(t, StatusNoResult, f.terminates(func() { skipper(f) }))

	first := strings.SplitN(f.errOut.String(), "\n", 3)[1]
	assert.NotContains(t, first, "TestSkipTest_FromFrameworkDropsHelperFrame.func1")
	assert.Equal(t, DefaultSkipMessage, f.out.String())
}

func TestConfigFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want Config
	}{
		{name: "unset", want: Config{}},
		{name: "empty and zero are off", env: map[string]string{EnvPassSkips: "", EnvPreserveFail: "0"}, want: Config{}},
		{name: "pass skips", env: map[string]string{EnvPassSkips: "1"}, want: Config{PassSkips: true}},
		{
			name: "preserve enables all",
			env:  map[string]string{EnvPreserve: "yes"},
			want: Config{PreservePass: true, PreserveFail: true, PreserveNoResult: true},
		},
		{name: "preserve fail only", env: map[string]string{EnvPreserveFail: "1"}, want: Config{PreserveFail: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{EnvPassSkips, EnvPreserve, EnvPreservePass, EnvPreserveFail, EnvPreserveNoResult} {
				t.Setenv(k, "")
				os.Unsetenv(k)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, ConfigFromEnv())
		})
	}
}

func TestCleanup_RemovesOwnedWorkdir(t *testing.T) {
	f := newFixture(t)
	h, err := New(WithoutChdir(), WithOutput(f.out, f.errOut), WithConfig(Config{}), WithExit(func(int) {}))
	require.NoError(t, err)
	dir := h.Workdir()
	require.DirExists(t, dir)

	func() {
		defer func() { _ = recover() }()
		h.Pass()
	}()
	assert.NoDirExists(t, dir)
}

func TestCleanup_Preserve(t *testing.T) {
	f := newFixture(t)
	h, err := New(WithoutChdir(), WithOutput(f.out, f.errOut), WithConfig(Config{PreserveFail: true}), WithExit(func(int) {}))
	require.NoError(t, err)
	dir := h.Workdir()
	t.Cleanup(func() { os.RemoveAll(dir) })

	func() {
		defer func() { _ = recover() }()
		h.FailTest(true, "")
	}()
	assert.DirExists(t, dir)
	assert.Equal(t, "Preserved directory "+dir+"\n", f.out.String())
}

func TestNew_ChangesIntoWorkdirAndBack(t *testing.T) {
	orig, err := os.Getwd()
	require.NoError(t, err)

	f := newFixture(t)
	h, err := New(WithOutput(f.out, f.errOut), WithConfig(Config{}), WithExit(func(int) {}))
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, h.Workdir(), wd)

	func() {
		defer func() { _ = recover() }()
		h.Pass()
	}()
	wd, err = os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, orig, wd)
}

func TestPathAndSubdir(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.Subdir("a", filepath.Join("b", "c")))
	assert.DirExists(t, f.Path("b", "c"))
	assert.Equal(t, "/abs", f.Path("/abs"))
	assert.Equal(t, filepath.Join(f.Workdir(), "x", "y"), f.Path("x", "y"))
}
