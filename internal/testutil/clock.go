// Package testutil holds helpers shared by package tests.
package testutil

import (
	"sync"
	"time"
)

// StepClock is a wall clock for tests that starts at a fixed instant and
// advances by a fixed step on every reading.
//
// Safe for concurrent use.
type StepClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int
}

// NewStepClock creates a clock whose first reading is base.
func NewStepClock(base time.Time, step time.Duration) *StepClock {
	return &StepClock{base: base, step: step}
}

// Now returns the next reading. Pass the method value where a
// func() time.Time is expected.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Peek returns the next reading without consuming it.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.Add(time.Duration(c.n) * c.step)
}

// Reset rewinds the clock so the next reading is base again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
