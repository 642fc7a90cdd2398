package harness

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"

	"github.com/roach88/cmdtest/internal/match"
)

func writeQuotedLines(w io.Writer, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(w, "    %s\n", quoteLine(l))
	}
}

// quoteLine single-quotes s for diagnostics, switching to double quotes
// when s holds a single quote and no double quote. The active quote,
// backslashes and non-printable runes are backslash-escaped.
func quoteLine(s string) string {
	q := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}

	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r) && r != ' ':
			switch {
			case r <= 0xff:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r <= 0xffff:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}

// MustContainAll fails unless output contains input as one block.
func (t *Test) MustContainAll(output, input string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	if match.Contains(output, input, c.find) {
		return
	}
	fmt.Fprintf(t.out, "Missing expected input from %s:\n", c.title)
	fmt.Fprintln(t.out, input)
	fmt.Fprintln(t.out, Banner(c.title+" "))
	fmt.Fprintln(t.out, output)
	t.fail(c.message)
}

// MustContainAllLines fails unless output contains every line.
func (t *Test) MustContainAllLines(output string, lines []string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	var missing []string
	for _, l := range lines {
		if !match.Contains(output, l, c.find) {
			missing = append(missing, l)
		}
	}
	if len(missing) == 0 {
		return
	}
	fmt.Fprintf(t.out, "Missing expected lines from %s:\n", c.title)
	writeQuotedLines(t.out, missing)
	fmt.Fprintln(t.out, Banner(c.title+" "))
	io.WriteString(t.out, output)
	t.fail(c.message)
}

// MustContainAnyLine fails unless output contains at least one line.
func (t *Test) MustContainAnyLine(output string, lines []string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	for _, l := range lines {
		if match.Contains(output, l, c.find) {
			return
		}
	}
	fmt.Fprintf(t.out, "Missing any expected line from %s:\n", c.title)
	writeQuotedLines(t.out, lines)
	fmt.Fprintln(t.out, Banner(c.title+" "))
	io.WriteString(t.out, output)
	t.fail(c.message)
}

// MustNotContainAnyLine fails if output contains any of lines.
func (t *Test) MustNotContainAnyLine(output string, lines []string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	var unexpected []string
	for _, l := range lines {
		if match.Contains(output, l, c.find) {
			unexpected = append(unexpected, l)
		}
	}
	if len(unexpected) == 0 {
		return
	}
	fmt.Fprintf(t.out, "Unexpected lines in %s:\n", c.title)
	writeQuotedLines(t.out, unexpected)
	fmt.Fprintln(t.out, Banner(c.title+" "))
	io.WriteString(t.out, output)
	t.fail(c.message)
}

// MustContainSingleInstanceOf fails unless every line occurs in output
// exactly once.
func (t *Test) MustContainSingleInstanceOf(output string, lines []string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	var bad []string
	counts := map[string]int{}
	for _, l := range lines {
		n := strings.Count(output, l)
		if n != 1 {
			if _, seen := counts[l]; !seen {
				bad = append(bad, l)
			}
			counts[l] = n
		}
	}
	if len(bad) == 0 {
		return
	}
	fmt.Fprintf(t.out, "Unexpected number of lines from %s:\n", c.title)
	for _, l := range bad {
		fmt.Fprintf(t.out, "    %s: found %d\n", quoteLine(l), counts[l])
	}
	fmt.Fprintln(t.out, Banner(c.title+" "))
	io.WriteString(t.out, output)
	t.fail(c.message)
}

// ExactlyLines compares output and expected as unordered multisets of
// lines. Each expected line consumes one matching output line; missing
// holds the expected lines nothing matched and extra the output lines
// never consumed.
func ExactlyLines(output string, expected []string, find match.LineFinder) (missing, extra []string) {
	out := match.SplitLines(output)
	exp := make([]string, len(expected))
	for i, e := range expected {
		exp[i] = strings.TrimRight(e, "\n")
	}

	if slices.Equal(sorted(out), sorted(exp)) {
		return nil, nil
	}

	for _, line := range exp {
		i, ok := match.FindLine(out, line, find)
		if !ok {
			missing = append(missing, line)
			continue
		}
		out = slices.Delete(out, i, i+1)
	}
	if len(out) == 0 {
		out = nil
	}
	return missing, out
}

func sorted(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

// MustContainExactlyLines fails unless output holds exactly the expected
// lines, in any order, with none left over.
func (t *Test) MustContainExactlyLines(output string, expected []string, opts ...CheckOption) {
	c := t.checkConfig(opts)
	missing, extra := ExactlyLines(output, expected, c.findLine)
	if len(missing) == 0 && len(extra) == 0 {
		return
	}
	if len(missing) > 0 {
		fmt.Fprintf(t.out, "Missing expected lines from %s:\n", c.title)
		writeQuotedLines(t.out, missing)
		fmt.Fprintln(t.out, Banner("Missing "+c.title+" "))
	}
	if len(extra) > 0 {
		fmt.Fprintf(t.out, "Extra unexpected lines from %s:\n", c.title)
		writeQuotedLines(t.out, extra)
		fmt.Fprintln(t.out, Banner("Extra "+c.title+" "))
	}
	t.fail(c.message)
}
