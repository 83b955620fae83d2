// Package collector implements the collection engine shared by all SIEM
// backends: window derivation, the per-window cycle and the main loop.
package collector

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrorCounter accumulates errors and warnings by category across a
// collection session. Fail-soft accounting: problems are counted and
// surfaced in the final summary instead of aborting the loop.
type ErrorCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewErrorCounter returns an empty counter.
func NewErrorCounter() *ErrorCounter {
	return &ErrorCounter{counts: make(map[string]int64)}
}

// Inc increments a category by one.
func (c *ErrorCounter) Inc(key string) {
	c.IncBy(key, 1)
}

// IncBy increments a category by amount.
func (c *ErrorCounter) IncBy(key string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key] += amount
}

// AsMap returns a copy of the current counts.
func (c *ErrorCounter) AsMap() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Empty reports whether nothing has been counted.
func (c *ErrorCounter) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.counts) == 0
}

// SummaryLine renders the counts as "key=value" pairs in key order, or
// "no errors" when the counter is empty.
func (c *ErrorCounter) SummaryLine() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.counts) == 0 {
		return "no errors"
	}
	keys := make([]string, 0, len(c.counts))
	for k := range c.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c.counts[k]))
	}
	return strings.Join(parts, ", ")
}
