// Package marketdata holds the engine's in-memory bar history and
// last-tick caches. It performs no I/O and takes no locks: it is a
// passive cache mutated only on the engine's single logical thread of
// control.
package marketdata

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/pkg/errs"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// defaultCapacity bounds a single BarType's history when the caller does
// not specify one via WithCapacity.
const defaultCapacity = 1000

// BarCache is a bounded, time-ordered, per-BarType deque of bars, newest
// first, plus a per-Symbol last-tick cache.
type BarCache struct {
	logger   *zap.Logger
	capacity int
	bars     map[types.BarType][]types.Bar
	ticks    map[string]types.Tick
}

// Option configures a BarCache.
type Option func(*BarCache)

// WithCapacity overrides the default per-BarType history capacity.
func WithCapacity(n int) Option {
	return func(c *BarCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// New creates an empty BarCache.
func New(logger *zap.Logger, opts ...Option) *BarCache {
	c := &BarCache{
		logger:   logger.Named("marketdata"),
		capacity: defaultCapacity,
		bars:     make(map[types.BarType][]types.Bar),
		ticks:    make(map[string]types.Tick),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddBar inserts a bar at the front of its BarType's history, evicting the
// oldest entry once the history exceeds capacity.
func (c *BarCache) AddBar(bt types.BarType, bar types.Bar) {
	hist := c.bars[bt]
	hist = append([]types.Bar{bar}, hist...)
	if len(hist) > c.capacity {
		hist = hist[:c.capacity]
	}
	c.bars[bt] = hist
}

// Bars returns a stable snapshot copy of the cached history for bt,
// newest first.
func (c *BarCache) Bars(bt types.BarType) []types.Bar {
	hist := c.bars[bt]
	out := make([]types.Bar, len(hist))
	copy(out, hist)
	return out
}

// Bar returns the index-th most recent bar for bt (0 == most recent),
// failing with an *errs.Lookup if bt is unknown or index is out of range.
func (c *BarCache) Bar(bt types.BarType, index int) (types.Bar, error) {
	hist := c.bars[bt]
	if index < 0 || index >= len(hist) {
		return types.Bar{}, &errs.Lookup{Op: "bar", Key: fmt.Sprintf("%s[%d]", bt, index)}
	}
	return hist[index], nil
}

// LastBar returns the most recent bar for bt, failing with an
// *errs.Lookup if none has been delivered yet.
func (c *BarCache) LastBar(bt types.BarType) (types.Bar, error) {
	return c.Bar(bt, 0)
}

// BarCount reports how many bars are cached for bt.
func (c *BarCache) BarCount(bt types.BarType) int {
	return len(c.bars[bt])
}

// UpdateTick stores the most recent tick for a symbol.
func (c *BarCache) UpdateTick(sym types.Symbol, tick types.Tick) {
	c.ticks[sym.String()] = tick
}

// LastTick returns the most recent cached tick for sym, failing with an
// *errs.Lookup if none has been observed yet.
func (c *BarCache) LastTick(sym types.Symbol) (types.Tick, error) {
	t, ok := c.ticks[sym.String()]
	if !ok {
		return types.Tick{}, &errs.Lookup{Op: "last_tick", Key: sym.String()}
	}
	return t, nil
}

// Snapshot returns every cached last-tick, keyed by symbol string, for use
// by the exchange-rate helper.
func (c *BarCache) Snapshot() map[string]types.Tick {
	out := make(map[string]types.Tick, len(c.ticks))
	for k, v := range c.ticks {
		out[k] = v
	}
	return out
}

// Reset clears all cached bars and ticks. Used between backtest runs.
func (c *BarCache) Reset() {
	c.bars = make(map[types.BarType][]types.Bar)
	c.ticks = make(map[string]types.Tick)
}
