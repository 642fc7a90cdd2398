// Package scenario loads YAML test scenarios for command-line programs and
// turns each into a suite case driven by the harness.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cmdtest/internal/harness"
	"github.com/roach88/cmdtest/internal/match"
	"github.com/roach88/cmdtest/internal/platform"
)

// DefaultClass names the suite class of scenarios that do not set one.
const DefaultClass = "Scenario"

// Scenario is one test of a command-line program.
type Scenario struct {
	// Name identifies the scenario; it becomes the case's method name.
	Name string `yaml:"name"`

	// Class groups scenarios in the report. Defaults to DefaultClass.
	Class string `yaml:"class,omitempty"`

	Description string `yaml:"description,omitempty"`

	// Program is run by steps that do not name their own. A relative path
	// with a directory part is resolved against the scenario file.
	Program string `yaml:"program,omitempty"`

	// Interpreter runs Program, e.g. ["python3"].
	Interpreter []string `yaml:"interpreter,omitempty"`

	// Match names the default match function: exact, caseinsensitive, re
	// or re_dotall.
	Match string `yaml:"match,omitempty"`

	// ExpectFailure inverts the verdict: a failing scenario is reported as
	// an expected failure, a passing one as an unexpected success.
	ExpectFailure bool `yaml:"expect_failure,omitempty"`

	// Skip, when set, skips the whole scenario with this reason.
	Skip string `yaml:"skip,omitempty"`

	// Fixtures is a txtar archive unpacked into the working directory.
	Fixtures string `yaml:"fixtures,omitempty"`

	// Files are written into the working directory after Fixtures.
	Files map[string]string `yaml:"files,omitempty"`

	Steps []Step `yaml:"steps"`

	// Dir is the directory of the scenario file.
	Dir string `yaml:"-"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	Run                     *RunStep     `yaml:"run,omitempty"`
	MustExist               []string     `yaml:"must_exist,omitempty"`
	MustNotExist            []string     `yaml:"must_not_exist,omitempty"`
	MustContain             *ContainStep `yaml:"must_contain,omitempty"`
	MustNotContain          *ContainStep `yaml:"must_not_contain,omitempty"`
	MustMatch               *MatchStep   `yaml:"must_match,omitempty"`
	MustMatchFile           *MatchStep   `yaml:"must_match_file,omitempty"`
	MustContainExactlyLines *LinesStep   `yaml:"must_contain_exactly_lines,omitempty"`
	MustNotBeEmpty          string       `yaml:"must_not_be_empty,omitempty"`
	Skip                    string       `yaml:"skip,omitempty"`
}

// Kind names the action of s, or "" if none is set.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var k []string
	add := func(set bool, name string) {
		if set {
			k = append(k, name)
		}
	}
	add(s.Run != nil, "run")
	add(s.MustExist != nil, "must_exist")
	add(s.MustNotExist != nil, "must_not_exist")
	add(s.MustContain != nil, "must_contain")
	add(s.MustNotContain != nil, "must_not_contain")
	add(s.MustMatch != nil, "must_match")
	add(s.MustMatchFile != nil, "must_match_file")
	add(s.MustContainExactlyLines != nil, "must_contain_exactly_lines")
	add(s.MustNotBeEmpty != "", "must_not_be_empty")
	add(s.Skip != "", "skip")
	return k
}

// RunStep invokes a program and checks its outcome. A nil expectation is
// not checked. When the key is absent Stderr defaults to "" and Status to
// 0; an explicit null disables the check.
type RunStep struct {
	Program           string            `yaml:"program,omitempty"`
	Options           Args              `yaml:"options,omitempty"`
	Arguments         Args              `yaml:"arguments,omitempty"`
	Stdin             string            `yaml:"stdin,omitempty"`
	Env               map[string]string `yaml:"env,omitempty"`
	UniversalNewlines bool              `yaml:"universal_newlines,omitempty"`
	Stdout            *string           `yaml:"stdout"`
	Stderr            *string           `yaml:"stderr"`
	Status            *int              `yaml:"status"`
	Match             string            `yaml:"match,omitempty"`
}

// UnmarshalYAML presets the defaults so that absent and null differ.
func (r *RunStep) UnmarshalYAML(n *yaml.Node) error {
	if err := knownKeys(n, runKeys); err != nil {
		return err
	}
	type plain RunStep
	empty, zero := "", 0
	p := plain{Stderr: &empty, Status: &zero}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*r = RunStep(p)
	return nil
}

var runKeys = []string{
	"program", "options", "arguments", "stdin", "env", "universal_newlines",
	"stdout", "stderr", "status", "match",
}

// knownKeys rejects mapping keys outside allowed. Node.Decode does not
// inherit the decoder's KnownFields setting.
func knownKeys(n *yaml.Node, allowed []string) error {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i]
		if !slices.Contains(allowed, k.Value) {
			return fmt.Errorf("line %d: field %s not found in run step", k.Line, k.Value)
		}
	}
	return nil
}

// Args accepts a whitespace-separated string or a list of tokens.
type Args struct {
	harness.Args
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Args) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s string
		if err := n.Decode(&s); err != nil {
			return err
		}
		a.Args = harness.Line(s)
	case yaml.SequenceNode:
		var tokens []string
		if err := n.Decode(&tokens); err != nil {
			return err
		}
		a.Args = harness.List(tokens...)
	default:
		return fmt.Errorf("line %d: arguments must be a string or a list of strings", n.Line)
	}
	return nil
}

// ContainStep checks that a file contains (or lacks) Text.
type ContainStep struct {
	File string `yaml:"file"`
	Text string `yaml:"text"`
	// Mode is "binary" (default) or "text".
	Mode string `yaml:"mode,omitempty"`
	// Regexp treats Text as a regular expression.
	Regexp bool `yaml:"regexp,omitempty"`
}

// MatchStep compares a file with Content, or with the Golden file.
type MatchStep struct {
	File    string `yaml:"file"`
	Content string `yaml:"content,omitempty"`
	// Golden is resolved against the scenario file.
	Golden string `yaml:"golden,omitempty"`
	Mode   string `yaml:"mode,omitempty"`
	Match  string `yaml:"match,omitempty"`
}

// LinesStep checks that Output holds exactly Lines in any order.
type LinesStep struct {
	// Output is "stdout", "stderr" or a file in the working directory.
	Output string   `yaml:"output"`
	Lines  []string `yaml:"lines"`
	Regexp bool     `yaml:"regexp,omitempty"`
}

// ValidationError reports a malformed scenario.
type ValidationError struct {
	Path string
	Msg  string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid scenario: " + e.Msg
	}
	return fmt.Sprintf("invalid scenario %s: %s", e.Path, e.Msg)
}

// Load reads and validates a scenario file. Unknown fields are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Path = path
		}
		return nil, err
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve scenario dir: %w", err)
	}
	s.resolve(dir)
	return s, nil
}

// Parse decodes and validates a scenario. Relative paths are left as
// written.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Class == "" {
		s.Class = DefaultClass
	}
	return &s, nil
}

// resolve expands platform variables and anchors scenario-relative paths
// at dir.
func (s *Scenario) resolve(dir string) {
	s.Dir = dir
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	program := func(p string) string {
		p = expand(p)
		if filepath.Base(p) == p {
			return p // looked up on PATH
		}
		return anchor(p)
	}

	s.Program = program(s.Program)
	s.Fixtures = anchor(expand(s.Fixtures))
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.Run != nil && st.Run.Program != "" {
			st.Run.Program = program(st.Run.Program)
		}
		if st.MustMatchFile != nil {
			st.MustMatchFile.Golden = anchor(expand(st.MustMatchFile.Golden))
		}
	}
}

// Validate checks required fields and that every step has one action.
func (s *Scenario) Validate() error {
	invalid := func(format string, args ...any) error {
		return &ValidationError{Msg: fmt.Sprintf(format, args...)}
	}
	if s.Name == "" {
		return invalid("name is required")
	}
	if len(s.Steps) == 0 && s.Skip == "" {
		return invalid("steps list is required and must be non-empty")
	}
	if _, err := match.Lookup(s.Match); err != nil {
		return invalid("%v", err)
	}

	for i, st := range s.Steps {
		kinds := st.kinds()
		switch len(kinds) {
		case 0:
			return invalid("steps[%d]: no action", i)
		case 1:
		default:
			return invalid("steps[%d]: more than one action: %v", i, kinds)
		}
		if err := st.validate(s); err != nil {
			return invalid("steps[%d].%s: %v", i, kinds[0], err)
		}
	}
	return nil
}

func (st Step) validate(s *Scenario) error {
	switch {
	case st.Run != nil:
		if st.Run.Program == "" && s.Program == "" {
			return errors.New("program is required")
		}
		if _, err := match.Lookup(st.Run.Match); err != nil {
			return err
		}
	case st.MustExist != nil:
		if len(st.MustExist) == 0 {
			return errors.New("at least one path is required")
		}
	case st.MustNotExist != nil:
		if len(st.MustNotExist) == 0 {
			return errors.New("at least one path is required")
		}
	case st.MustContain != nil:
		return st.MustContain.validate()
	case st.MustNotContain != nil:
		return st.MustNotContain.validate()
	case st.MustMatch != nil:
		if st.MustMatch.File == "" {
			return errors.New("file is required")
		}
		if st.MustMatch.Golden != "" {
			return errors.New("golden belongs to must_match_file")
		}
		if _, err := parseMode(st.MustMatch.Mode); err != nil {
			return err
		}
		_, err := match.Lookup(st.MustMatch.Match)
		return err
	case st.MustMatchFile != nil:
		if st.MustMatchFile.File == "" || st.MustMatchFile.Golden == "" {
			return errors.New("file and golden are required")
		}
		if _, err := parseMode(st.MustMatchFile.Mode); err != nil {
			return err
		}
		_, err := match.Lookup(st.MustMatchFile.Match)
		return err
	case st.MustContainExactlyLines != nil:
		if st.MustContainExactlyLines.Output == "" {
			return errors.New("output is required")
		}
	}
	return nil
}

func (c *ContainStep) validate() error {
	if c.File == "" {
		return errors.New("file is required")
	}
	_, err := parseMode(c.Mode)
	return err
}

// Glob expands patterns into scenario file paths, sorted and without
// duplicates. A pattern without glob metacharacters must name a file.
func Glob(patterns ...string) ([]string, error) {
	seen := map[string]bool{}
	var paths []string
	for _, p := range patterns {
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no scenario files match %q", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

var varRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expand substitutes the platform affix variables in both the $NAME and
// ${NAME} forms. Any other reference is left as written.
func expand(s string) string {
	vars := platform.Current.Vars()
	return varRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := strings.Trim(ref, "${}")
		if v, ok := vars[name]; ok {
			return v
		}
		return ref
	})
}
