package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

func bar(close string) types.Bar {
	c := decimal.RequireFromString(close)
	return types.Bar{Open: c, High: c, Low: c, Close: c, Volume: decimal.Zero, Timestamp: time.Now()}
}

func TestEMAWarmUpGating(t *testing.T) {
	ema := NewEMA(10)

	for i := 0; i < 9; i++ {
		ema.Update(bar("1.0"))
	}
	assert.False(t, ema.Initialized())

	ema.Update(bar("1.0"))
	assert.True(t, ema.Initialized())
}

func TestSMAWarmUpGatingAndValue(t *testing.T) {
	sma := NewSMA(3)

	sma.Update(bar("1"))
	sma.Update(bar("2"))
	assert.False(t, sma.Initialized())

	sma.Update(bar("3"))
	require.True(t, sma.Initialized())
	assert.True(t, sma.Value().Equal(decimal.NewFromInt(2)))

	sma.Update(bar("6"))
	expected := decimal.NewFromInt(11).Div(decimal.NewFromInt(3))
	assert.True(t, sma.Value().Equal(expected))
}

func TestRegistryInitializedAcrossBarTypes(t *testing.T) {
	reg := NewRegistry()
	bt1 := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}
	bt2 := types.BarType{Symbol: types.NewSymbol("GBPUSD", "SIM")}

	reg.Register(bt1, NewEMA(2), nil)
	reg.Register(bt2, NewEMA(2), nil)

	reg.Feed(bt1, bar("1"))
	reg.Feed(bt1, bar("1"))
	assert.True(t, reg.Initialized(bt1))
	assert.False(t, reg.Initialized(bt2))
	assert.False(t, reg.InitializedAll())

	reg.Feed(bt2, bar("1"))
	reg.Feed(bt2, bar("1"))
	assert.True(t, reg.InitializedAll())
}

func TestRegistryUpdateFnInvokedAfterIndicator(t *testing.T) {
	reg := NewRegistry()
	bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}
	ema := NewEMA(1)

	var observed types.Price
	reg.Register(bt, ema, func(ind Indicator, b types.Bar) {
		observed = ind.Value()
	})

	reg.Feed(bt, bar("5"))
	assert.True(t, observed.Equal(decimal.NewFromInt(5)))
}

func TestRegistryResetClearsIndicators(t *testing.T) {
	reg := NewRegistry()
	bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}
	ema := NewEMA(1)
	reg.Register(bt, ema, nil)

	reg.Feed(bt, bar("1"))
	assert.True(t, reg.Initialized(bt))

	reg.Reset()
	assert.False(t, reg.Initialized(bt))
}
