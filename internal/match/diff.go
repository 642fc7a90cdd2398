package match

import (
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Differ writes a human-readable comparison of want and got to w. name
// labels the compared content (e.g. "STDOUT ").
type Differ func(w io.Writer, want, got, name string)

// DetailedDiff reports a line count mismatch, then every differing line pair
// as "[got]" over "[want]", then both texts in full.
func DetailedDiff(w io.Writer, want, got, _ string) {
	g := strings.Split(got, "\n")
	e := strings.Split(want, "\n")
	if len(g) != len(e) {
		fmt.Fprintf(w, "different number of lines:%d %d\n", len(g), len(e))
	}

	n := min(len(g), len(e))
	for i := 0; i < n; i++ {
		if g[i] != e[i] {
			fmt.Fprintf(w, "\n[%s]\n[%s]\n", g[i], e[i])
		}
	}

	fmt.Fprintf(w, "Expected:\n%s\nGot:\n%s\n", want, got)
}

// UnifiedDiff writes a unified diff from want to got.
func UnifiedDiff(w io.Writer, want, got, name string) {
	label := strings.TrimSpace(name)
	if label == "" {
		label = "contents"
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "Expected " + label,
		ToFile:   "Actual " + label,
		Context:  3,
	})
	if err != nil {
		fmt.Fprintf(w, "diff failed: %v\n", err)
		return
	}
	io.WriteString(w, text)
}
