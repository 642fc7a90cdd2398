package harness

import "os"

// Environment variables consulted by ConfigFromEnv.
const (
	EnvPassSkips        = "TESTCOMMON_PASS_SKIPS"
	EnvPreserve         = "PRESERVE"
	EnvPreservePass     = "PRESERVE_PASS"
	EnvPreserveFail     = "PRESERVE_FAIL"
	EnvPreserveNoResult = "PRESERVE_NO_RESULT"
)

// Config holds the environment-level toggles of a test run.
type Config struct {
	// PassSkips reports skips as Pass instead of NoResult.
	PassSkips bool

	// Preserve* keep the working directory when the test ends that way.
	PreservePass     bool
	PreserveFail     bool
	PreserveNoResult bool
}

// ConfigFromEnv reads the toggles from the process environment. A variable
// counts as set unless it is unset, "" or "0".
func ConfigFromEnv() Config {
	all := enabled(EnvPreserve)
	return Config{
		PassSkips:        enabled(EnvPassSkips),
		PreservePass:     all || enabled(EnvPreservePass),
		PreserveFail:     all || enabled(EnvPreserveFail),
		PreserveNoResult: all || enabled(EnvPreserveNoResult),
	}
}

func enabled(name string) bool {
	v, ok := os.LookupEnv(name)
	return ok && v != "" && v != "0"
}

func (c Config) preserve(s Status) bool {
	switch s {
	case StatusPass:
		return c.PreservePass
	case StatusFail:
		return c.PreserveFail
	case StatusNoResult:
		return c.PreserveNoResult
	}
	return false
}
