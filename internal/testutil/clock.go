// Package testutil provides deterministic stand-ins for the ledger's id
// generator and clock, so scenario runs and golden snapshots are repeatable.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// DeterministicClock is a thread-safe clock that advances by a fixed step on
// every read.
//
// The first call to Now returns the start time; each later call returns the
// previous value plus step. Reset rewinds to the start for test reuse.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewDeterministicClock creates a clock starting at start, advancing by step.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{start: start.UTC(), step: step}
}

// Now returns start + n*step for the n-th call (zero-based).
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns start again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

// SequenceIDs generates "<prefix>-000001", "<prefix>-000002", ... event ids.
//
// Thread-safe via internal mutex. The same scenario with a fresh SequenceIDs
// produces byte-identical ledgers.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequenceIDs creates a generator. An empty prefix defaults to "evt".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "evt"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%06d", g.prefix, g.next)
}
