package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/pkg/errs"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

func makeBar(close string, ts time.Time) types.Bar {
	c := decimal.RequireFromString(close)
	return types.Bar{Open: c, High: c, Low: c, Close: c, Volume: decimal.Zero, Timestamp: ts}
}

func TestBarCacheCapacityEviction(t *testing.T) {
	c := New(zap.NewNop(), WithCapacity(3))
	bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}

	now := time.Now()
	b1 := makeBar("1", now)
	b2 := makeBar("2", now.Add(time.Minute))
	b3 := makeBar("3", now.Add(2*time.Minute))
	b4 := makeBar("4", now.Add(3*time.Minute))

	c.AddBar(bt, b1)
	c.AddBar(bt, b2)
	c.AddBar(bt, b3)
	c.AddBar(bt, b4)

	got := c.Bars(bt)
	require.Len(t, got, 3)
	assert.Equal(t, []types.Bar{b4, b3, b2}, got)

	last, err := c.LastBar(bt)
	require.NoError(t, err)
	assert.Equal(t, b4, last)
}

func TestBarCacheUnknownKeyFailsWithLookupError(t *testing.T) {
	c := New(zap.NewNop())
	bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}

	_, err := c.LastBar(bt)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrLookup)
	var lookupErr *errs.Lookup
	assert.ErrorAs(t, err, &lookupErr)

	sym := types.NewSymbol("EURUSD", "SIM")
	_, err = c.LastTick(sym)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrLookup)
	assert.ErrorAs(t, err, &lookupErr)
}

func TestBarCacheOutOfRangeIndex(t *testing.T) {
	c := New(zap.NewNop())
	bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}
	c.AddBar(bt, makeBar("1", time.Now()))

	_, err := c.Bar(bt, 5)
	assert.Error(t, err)
}

func TestBarCacheResetClearsEverything(t *testing.T) {
	c := New(zap.NewNop())
	bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}
	sym := types.NewSymbol("EURUSD", "SIM")

	c.AddBar(bt, makeBar("1", time.Now()))
	c.UpdateTick(sym, types.Tick{Symbol: sym, Bid: decimal.NewFromInt(1), Ask: decimal.NewFromInt(1), Timestamp: time.Now()})

	c.Reset()

	assert.Equal(t, 0, c.BarCount(bt))
	_, err := c.LastTick(sym)
	assert.Error(t, err)
}
