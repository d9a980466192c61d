// Package idgen implements the engine's monotonic, collision-free
// OrderId/PositionId generators.
package idgen

import (
	"fmt"
	"sync"

	"github.com/atlas-desktop/strategy-engine/internal/clock"
)

// Generator produces IDs of the form
// "{prefix}-{YYYYMMDD}-{HHMMSS}-{trader-tag}-{strategy-tag}-{counter}".
// Uniqueness within a trader is guaranteed by the tag pair plus the
// monotonic counter within a second, and across seconds by the datetime
// component.
type Generator struct {
	mu           sync.Mutex
	prefix       string
	traderTag    string
	strategyTag  string
	clock        clock.Clock
	counter      int
}

// New creates a Generator. prefix is "O" for orders, "P" for positions.
func New(prefix, traderTag, strategyTag string, c clock.Clock) *Generator {
	return &Generator{prefix: prefix, traderTag: traderTag, strategyTag: strategyTag, clock: c}
}

// Generate increments the internal counter and returns the next ID.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	now := g.clock.TimeNow()
	return fmt.Sprintf("%s-%s-%s-%s-%s-%d",
		g.prefix,
		now.Format("20060102"),
		now.Format("150405"),
		g.traderTag,
		g.strategyTag,
		g.counter,
	)
}

// Reset zeroes the internal counter.
func (g *Generator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter = 0
}

// Count returns the current counter value (for tests asserting P6/scenario 6).
func (g *Generator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
