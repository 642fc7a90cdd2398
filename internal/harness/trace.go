package harness

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// callerTrace renders the call stack outside this package, innermost
// first, as "at line N of FILE (FUNC)" followed by "\tfrom ..." lines.
// skip drops that many additional innermost frames.
func callerTrace(skip int) string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	word := "at"
	for {
		f, more := frames.Next()
		if f.Function != "" && !internalFrame(f) {
			if stopFrame(f) {
				break
			}
			if skip > 0 {
				skip--
			} else {
				fmt.Fprintf(&b, "%s line %d of %s (%s)\n", word, f.Line, f.File, shortFunc(f.Function))
				word = "\tfrom"
			}
		}
		if !more {
			break
		}
	}
	if b.Len() == 0 {
		return "at unknown location\n"
	}
	return b.String()
}

// internalFrame reports frames from this package's non-test sources.
func internalFrame(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, packagePath+".") && !strings.HasSuffix(f.File, "_test.go")
}

func stopFrame(f runtime.Frame) bool {
	return strings.HasPrefix(f.Function, "runtime.") || strings.HasPrefix(f.Function, "testing.")
}

func shortFunc(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}

type marker struct{}

var packagePath = reflect.TypeOf(marker{}).PkgPath()
