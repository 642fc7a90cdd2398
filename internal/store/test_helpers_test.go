package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cmdtest/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock returns a clock that starts at base and advances one second
// per reading.
func fixedClock(base time.Time) func() time.Time {
	return testutil.NewStepClock(base, time.Second).Now
}
