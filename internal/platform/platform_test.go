package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		target string
		exe    string
		lib    string
		dll    string
		shobj  string
	}{
		{"windows", "prog.exe", "foo.lib", "foo.dll", "foo.obj"},
		{"windows-mingw", "prog.exe", "foo.lib", "foo.dll", "foo.o"},
		{"cygwin", "prog.exe", "libfoo.a", "cygfoo.dll", "foo.os"},
		{"darwin", "prog", "libfoo.a", "libfoo.dylib", "foo.os"},
		{"solaris", "prog", "libfoo.a", "libfoo.so", "foo.pic.o"},
		{"illumos", "prog", "libfoo.a", "libfoo.so", "foo.pic.o"},
		{"linux", "prog", "libfoo.a", "libfoo.so", "foo.os"},
		{"plan9", "prog", "libfoo.a", "libfoo.so", "foo.os"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			a := Lookup(tt.target)
			assert.Equal(t, tt.exe, a.Exe("prog"))
			assert.Equal(t, tt.lib, a.Lib("foo"))
			assert.Equal(t, tt.dll, a.DLL("foo"))
			assert.Equal(t, tt.shobj, a.ShObj("foo"))
		})
	}
}

func TestCurrentMatchesTarget(t *testing.T) {
	assert.Equal(t, Lookup(Target()), Current)
	assert.Contains(t, Targets(), "darwin")
}

func TestVars(t *testing.T) {
	v := Lookup("windows").Vars()
	assert.Equal(t, ".exe", v["EXE_SUFFIX"])
	assert.Equal(t, ".dll", v["DLL_SUFFIX"])
	assert.Len(t, v, 8)

	assert.Equal(t, "lib", Lookup("linux").Vars()["LIB_PREFIX"])
}
