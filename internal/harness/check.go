package harness

import (
	"github.com/roach88/cmdtest/internal/match"
	"github.com/roach88/cmdtest/internal/testcmd"
)

type checkConfig struct {
	mode     testcmd.Mode
	find     match.Finder
	findLine match.LineFinder
	match    match.Func
	title    string
	message  string
}

// CheckOption tunes a Must* assertion.
type CheckOption func(*checkConfig)

// InMode reads files in mode. Binary is the default.
func InMode(m testcmd.Mode) CheckOption {
	return func(c *checkConfig) { c.mode = m }
}

// WithFinder replaces substring search in containment checks.
func WithFinder(f match.Finder) CheckOption {
	return func(c *checkConfig) { c.find = f }
}

// WithLineFinder replaces line equality in MustContainExactlyLines.
func WithLineFinder(f match.LineFinder) CheckOption {
	return func(c *checkConfig) { c.findLine = f }
}

// WithMatcher replaces the Test's match function in MustMatch*.
func WithMatcher(f match.Func) CheckOption {
	return func(c *checkConfig) { c.match = f }
}

// WithTitle names the searched output in failure messages.
func WithTitle(title string) CheckOption {
	return func(c *checkConfig) { c.title = title }
}

// WithMessage is printed with the FAILED verdict.
func WithMessage(msg string) CheckOption {
	return func(c *checkConfig) { c.message = msg }
}

func (t *Test) checkConfig(opts []CheckOption) *checkConfig {
	c := &checkConfig{mode: testcmd.Binary, match: t.match, title: "output"}
	for _, opt := range opts {
		opt(c)
	}
	if c.title == "" {
		c.title = "output"
	}
	if c.match == nil {
		c.match = match.Exact
	}
	return c
}
