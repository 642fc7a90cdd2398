// Package match holds the comparison primitives shared by the assertion
// harness: whole-text match functions, substring and line finders, and the
// diff renderers printed when a comparison fails.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Func reports whether actual satisfies expected.
type Func func(actual, expected string) bool

// Finder locates needle in haystack. ok is false when needle is absent.
type Finder func(haystack, needle string) (index int, ok bool)

// LineFinder locates line among lines. ok is false when no line matches.
type LineFinder func(lines []string, line string) (index int, ok bool)

// Normalize makes text comparable across platforms: line endings become
// "\n" and the text is put into Unicode NFC.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return norm.NFC.String(s)
}

// SplitLines splits s into lines without their terminators. "\n", "\r\n"
// and a lone "\r" all end a line. A trailing terminator does not produce an
// empty final line.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// Exact matches when both sides are identical after Normalize, line by line.
func Exact(actual, expected string) bool {
	a := strings.Split(Normalize(actual), "\n")
	e := strings.Split(Normalize(expected), "\n")
	if len(a) != len(e) {
		return false
	}
	for i := range a {
		if a[i] != e[i] {
			return false
		}
	}
	return true
}

// CaseInsensitive is Exact ignoring letter case.
func CaseInsensitive(actual, expected string) bool {
	return Exact(strings.ToLower(actual), strings.ToLower(expected))
}

// RE treats every expected line as a regular expression that must match the
// whole corresponding actual line. Line counts must agree.
func RE(actual, expected string) bool {
	a := strings.Split(Normalize(actual), "\n")
	e := strings.Split(Normalize(expected), "\n")
	if len(a) != len(e) {
		return false
	}
	for i := range a {
		re, err := regexp.Compile("^(?:" + e[i] + ")$")
		if err != nil {
			return false
		}
		if !re.MatchString(a[i]) {
			return false
		}
	}
	return true
}

// REDotAll treats expected as one regular expression, with "." matching
// newlines, that must match the whole of actual.
func REDotAll(actual, expected string) bool {
	re, err := regexp.Compile("(?s)^(?:" + Normalize(expected) + ")$")
	if err != nil {
		return false
	}
	return re.MatchString(Normalize(actual))
}

// Lookup returns the match function registered under name.
func Lookup(name string) (Func, error) {
	switch name {
	case "", "exact":
		return Exact, nil
	case "caseinsensitive":
		return CaseInsensitive, nil
	case "re":
		return RE, nil
	case "re_dotall":
		return REDotAll, nil
	}
	return nil, fmt.Errorf("unknown match function %q", name)
}

// Index is the default Finder: plain substring search.
func Index(haystack, needle string) (int, bool) {
	i := strings.Index(haystack, needle)
	return i, i >= 0
}

// LineIndex is the default LineFinder: first line equal to line.
func LineIndex(lines []string, line string) (int, bool) {
	for i, l := range lines {
		if l == line {
			return i, true
		}
	}
	return -1, false
}

// Contains reports whether find locates needle in haystack. A nil find
// means substring containment. A negative index is treated as not found
// whatever the finder claims.
func Contains(haystack, needle string, find Finder) bool {
	if find == nil {
		find = Index
	}
	i, ok := find(haystack, needle)
	return ok && i >= 0
}

// FindLine locates line in lines with find, defaulting to LineIndex.
func FindLine(lines []string, line string, find LineFinder) (int, bool) {
	if find == nil {
		find = LineIndex
	}
	i, ok := find(lines, line)
	if !ok || i < 0 || i >= len(lines) {
		return -1, false
	}
	return i, true
}

// RegexpFinder returns a Finder that treats the needle as a regular
// expression matched anywhere in the haystack.
func RegexpFinder() Finder {
	return func(haystack, needle string) (int, bool) {
		re, err := regexp.Compile(needle)
		if err != nil {
			return -1, false
		}
		loc := re.FindStringIndex(haystack)
		if loc == nil {
			return -1, false
		}
		return loc[0], true
	}
}

// RegexpLineFinder returns a LineFinder that treats the expected line as a
// regular expression that must match a whole actual line.
func RegexpLineFinder() LineFinder {
	return func(lines []string, line string) (int, bool) {
		re, err := regexp.Compile("^(?:" + line + ")$")
		if err != nil {
			return -1, false
		}
		for i, l := range lines {
			if re.MatchString(l) {
				return i, true
			}
		}
		return -1, false
	}
}
