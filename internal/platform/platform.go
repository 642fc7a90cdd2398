// Package platform maps a build target to the file-name affixes its
// toolchains use for executables, objects and libraries.
package platform

import (
	"os"
	"runtime"
	"strings"
)

// Affixes holds the prefixes and suffixes for one target.
type Affixes struct {
	ExeSuffix   string `json:"exe_suffix"`
	ObjSuffix   string `json:"obj_suffix"`
	ShObjPrefix string `json:"shobj_prefix"`
	ShObjSuffix string `json:"shobj_suffix"`
	LibPrefix   string `json:"lib_prefix"`
	LibSuffix   string `json:"lib_suffix"`
	DLLPrefix   string `json:"dll_prefix"`
	DLLSuffix   string `json:"dll_suffix"`
}

var unix = Affixes{
	ObjSuffix:   ".o",
	ShObjSuffix: ".os",
	LibPrefix:   "lib",
	LibSuffix:   ".a",
	DLLPrefix:   "lib",
	DLLSuffix:   ".so",
}

var table = withAliases(map[string]Affixes{
	"windows": {
		ExeSuffix:   ".exe",
		ObjSuffix:   ".obj",
		ShObjSuffix: ".obj",
		LibSuffix:   ".lib",
		DLLSuffix:   ".dll",
	},
	// TODO: confirm whether mingw static libraries should use .a instead of .lib.
	"windows-mingw": {
		ExeSuffix:   ".exe",
		ObjSuffix:   ".o",
		ShObjSuffix: ".o",
		LibSuffix:   ".lib",
		DLLSuffix:   ".dll",
	},
	"cygwin": {
		ExeSuffix:   ".exe",
		ObjSuffix:   ".o",
		ShObjSuffix: ".os",
		LibPrefix:   "lib",
		LibSuffix:   ".a",
		DLLPrefix:   "cyg",
		DLLSuffix:   ".dll",
	},
	"irix": {
		ObjSuffix:   ".o",
		ShObjSuffix: ".o",
		LibPrefix:   "lib",
		LibSuffix:   ".a",
		DLLPrefix:   "lib",
		DLLSuffix:   ".so",
	},
	"darwin": {
		ObjSuffix:   ".o",
		ShObjSuffix: ".os",
		LibPrefix:   "lib",
		LibSuffix:   ".a",
		DLLPrefix:   "lib",
		DLLSuffix:   ".dylib",
	},
	"solaris": {
		ObjSuffix:   ".o",
		ShObjSuffix: ".pic.o",
		LibPrefix:   "lib",
		LibSuffix:   ".a",
		DLLPrefix:   "lib",
		DLLSuffix:   ".so",
	},
})

func withAliases(t map[string]Affixes) map[string]Affixes {
	t["illumos"] = t["solaris"]
	t["ios"] = t["darwin"]
	return t
}

// Current is the table entry for the running process, resolved once.
var Current = Lookup(Target())

// Target names the running platform. On Windows the MSYSTEM variable set
// by MSYS2 shells selects the mingw entry.
func Target() string {
	if runtime.GOOS == "windows" && strings.HasPrefix(strings.ToUpper(os.Getenv("MSYSTEM")), "MINGW") {
		return "windows-mingw"
	}
	return runtime.GOOS
}

// Lookup returns the affixes for target, falling back to generic Unix.
func Lookup(target string) Affixes {
	if a, ok := table[target]; ok {
		return a
	}
	return unix
}

// Targets lists the targets with a dedicated entry.
func Targets() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

func (a Affixes) Exe(name string) string   { return name + a.ExeSuffix }
func (a Affixes) Obj(name string) string   { return name + a.ObjSuffix }
func (a Affixes) ShObj(name string) string { return a.ShObjPrefix + name + a.ShObjSuffix }
func (a Affixes) Lib(name string) string   { return a.LibPrefix + name + a.LibSuffix }
func (a Affixes) DLL(name string) string   { return a.DLLPrefix + name + a.DLLSuffix }

// Vars returns the affixes keyed by the variable names scenario files use,
// e.g. "hello${EXE_SUFFIX}".
func (a Affixes) Vars() map[string]string {
	return map[string]string{
		"EXE_SUFFIX":   a.ExeSuffix,
		"OBJ_SUFFIX":   a.ObjSuffix,
		"SHOBJ_PREFIX": a.ShObjPrefix,
		"SHOBJ_SUFFIX": a.ShObjSuffix,
		"LIB_PREFIX":   a.LibPrefix,
		"LIB_SUFFIX":   a.LibSuffix,
		"DLL_PREFIX":   a.DLLPrefix,
		"DLL_SUFFIX":   a.DLLSuffix,
	}
}
