package harness

import "strings"

// Args is a command-line fragment given either as one whitespace-separated
// string or as pre-split tokens. Tokens survive unsplit, which is how an
// argument containing spaces is passed.
type Args struct {
	line   string
	tokens []string
	list   bool
	set    bool
}

// Line returns Args given as a single string.
func Line(s string) Args {
	return Args{line: s, set: true}
}

// List returns Args given as pre-split tokens.
func List(tokens ...string) Args {
	return Args{tokens: append([]string(nil), tokens...), list: true, set: true}
}

// IsZero reports whether the Args were never given.
func (a Args) IsZero() bool {
	return !a.set
}

// Empty reports whether the Args carry nothing: absent, "" or no tokens.
func (a Args) Empty() bool {
	if !a.set {
		return true
	}
	if a.list {
		return len(a.tokens) == 0
	}
	return a.line == ""
}

// IsList reports whether the Args were given as tokens.
func (a Args) IsList() bool {
	return a.list
}

// Tokens returns the argument vector. A string is split on whitespace.
func (a Args) Tokens() []string {
	if a.list {
		return append([]string(nil), a.tokens...)
	}
	return strings.Fields(a.line)
}

func (a Args) String() string {
	if a.list {
		return strings.Join(a.tokens, " ")
	}
	return a.line
}

// OptionsArguments puts options ahead of arguments.
//
// Empty options leave arguments untouched and absent arguments yield the
// options untouched. Otherwise each side given as a string is split on
// whitespace, each side given as tokens is used verbatim, and the result is
// the concatenation as tokens.
func OptionsArguments(options, arguments Args) Args {
	if options.Empty() {
		return arguments
	}
	if arguments.IsZero() {
		return options
	}
	return List(append(options.Tokens(), arguments.Tokens()...)...)
}
