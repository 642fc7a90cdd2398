package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/cmdtest/internal/match"
)

func quoteList(files []string) string {
	return "`" + strings.Join(files, "', `") + "'"
}

func (t *Test) present(p string) bool {
	return t.cmd.Exists(p) || t.cmd.IsSymlink(p)
}

// MustExist fails if any path is absent. A symlink counts as present even
// when dangling. All missing paths are reported.
func (t *Test) MustExist(paths ...string) {
	t.mustExist("", paths)
}

// MustExistWithMessage is MustExist with a message on failure.
func (t *Test) MustExistWithMessage(message string, paths ...string) {
	t.mustExist(message, paths)
}

func (t *Test) mustExist(message string, paths []string) {
	var missing []string
	for _, p := range paths {
		if !t.present(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(t.out, "Missing files: %s\n", quoteList(missing))
		t.fail(message)
	}
}

// MustNotExist fails if any path is present.
func (t *Test) MustNotExist(paths ...string) {
	var existing []string
	for _, p := range paths {
		if t.present(p) {
			existing = append(existing, p)
		}
	}
	if len(existing) > 0 {
		fmt.Fprintf(t.out, "Unexpected files exist: %s\n", quoteList(existing))
		t.fail("")
	}
}

// MustExistOneOf fails unless at least one pattern matches a file.
// Patterns use doublestar syntax, so "**" crosses directories.
func (t *Test) MustExistOneOf(patterns ...string) {
	var missing []string
	for _, p := range patterns {
		if t.globMatches(p) {
			return
		}
		missing = append(missing, p)
	}
	fmt.Fprintf(t.out, "Missing one of: %s\n", quoteList(missing))
	t.fail("")
}

// MustNotExistAnyOf fails if any pattern matches a file.
func (t *Test) MustNotExistAnyOf(patterns ...string) {
	var existing []string
	for _, p := range patterns {
		if t.globMatches(p) {
			existing = append(existing, p)
		}
	}
	if len(existing) > 0 {
		fmt.Fprintf(t.out, "Unexpected files exist: %s\n", quoteList(existing))
		t.fail("")
	}
}

func (t *Test) globMatches(pattern string) bool {
	var (
		matches []string
		err     error
	)
	if filepath.IsAbs(pattern) {
		matches, err = doublestar.FilepathGlob(pattern)
	} else {
		matches, err = doublestar.Glob(os.DirFS(t.Workdir()), filepath.ToSlash(pattern))
	}
	if err != nil {
		t.logger.Debug("bad glob pattern", "pattern", pattern, "error", err)
		return false
	}
	return len(matches) > 0
}

// MustBeWritable fails if any path is missing or lacks the owner write bit.
func (t *Test) MustBeWritable(paths ...string) {
	t.mustWritable(paths, true)
}

// MustNotBeWritable fails if any path is missing or has the owner write bit.
func (t *Test) MustNotBeWritable(paths ...string) {
	t.mustWritable(paths, false)
}

func (t *Test) mustWritable(paths []string, want bool) {
	var missing, wrong []string
	for _, p := range paths {
		if !t.cmd.Exists(p) {
			missing = append(missing, p)
			continue
		}
		w, err := t.cmd.Writable(p)
		if err != nil || w != want {
			wrong = append(wrong, p)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintf(t.out, "Missing files: %s\n", quoteList(missing))
	}
	if len(wrong) > 0 {
		label := "Unwritable"
		if !want {
			label = "Writable"
		}
		fmt.Fprintf(t.out, "%s files: %s\n", label, quoteList(wrong))
	}
	if len(missing)+len(wrong) > 0 {
		t.fail("")
	}
}

// MustNotBeEmpty fails if file is absent or has size zero.
func (t *Test) MustNotBeEmpty(file string) {
	if !t.present(file) {
		fmt.Fprintf(t.out, "File doesn't exist: `%s'\n", file)
		t.fail(file)
	}
	size, err := t.cmd.Size(file)
	if err != nil {
		size = 0
	}
	if size == 0 {
		fmt.Fprintf(t.out, "File is empty: `%s'\n", file)
		t.fail(file)
	}
}

// read returns file contents or fails the test when the file is unreadable.
func (t *Test) read(file string, c *checkConfig) string {
	contents, err := t.cmd.Read(file, c.mode)
	if err != nil {
		fmt.Fprintf(t.out, "Cannot read `%s' (mode %s): %v\n", file, c.mode, err)
		t.fail(c.message)
	}
	return contents
}

// MustContain fails unless file contains required. Files are read in
// Binary mode unless InMode says otherwise; WithFinder replaces substring
// search.
func (t *Test) MustContain(file, required string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	contents := t.read(file, c)
	if !match.Contains(contents, required, c.find) {
		fmt.Fprintf(t.out, "File `%s' does not contain required string.\n", file)
		fmt.Fprintln(t.out, Banner("Required string "))
		fmt.Fprintln(t.out, required)
		fmt.Fprintln(t.out, Banner(file+" contents "))
		fmt.Fprintln(t.out, contents)
		t.fail(c.message)
	}
}

// MustNotContain fails if file contains banned.
func (t *Test) MustNotContain(file, banned string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	contents := t.read(file, c)
	if match.Contains(contents, banned, c.find) {
		fmt.Fprintf(t.out, "File `%s' contains banned string.\n", file)
		fmt.Fprintln(t.out, Banner("Banned string "))
		fmt.Fprintln(t.out, banned)
		fmt.Fprintln(t.out, Banner(file+" contents "))
		fmt.Fprintln(t.out, contents)
		t.fail(c.message)
	}
}

// MustMatch fails unless the contents of file match expected under the
// match function (the Test's default, or WithMatcher). A mismatch prints
// a diff.
func (t *Test) MustMatch(file, expected string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	contents := t.read(file, c)
	t.mustMatch(file, contents, expected, c)
}

// MustMatchFile is MustMatch with the expected contents read from golden.
func (t *Test) MustMatchFile(file, golden string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	contents := t.read(file, c)
	want := t.read(golden, c)
	t.mustMatch(file, contents, want, c)
}

func (t *Test) mustMatch(file, contents, expected string, c *checkConfig) {
	if c.match(contents, expected) {
		return
	}
	fmt.Fprintf(t.out, "Unexpected contents of `%s'\n", file)
	t.showDiff(expected, contents, "contents ")
	t.fail(c.message)
}
