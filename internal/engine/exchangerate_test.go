package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-desktop/strategy-engine/internal/engine"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

func snapshotWith(code string, bid, ask float64) engine.TickSnapshot {
	sym := types.NewSymbol(code, "SIM")
	return engine.TickSnapshot{
		sym.String(): {
			Symbol:    sym,
			Bid:       decimal.NewFromFloat(bid),
			Ask:       decimal.NewFromFloat(ask),
			Timestamp: time.Now(),
		},
	}
}

func TestExchangeRateSameCurrencyIsOne(t *testing.T) {
	calc := engine.NewExchangeRateCalculator("USD", "SIM")

	rate, ok := calc.Rate("USD", engine.TickSnapshot{})
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}

func TestExchangeRateUsesMidOfDirectPair(t *testing.T) {
	calc := engine.NewExchangeRateCalculator("USD", "SIM")

	rate, ok := calc.Rate("EUR", snapshotWith("EURUSD", 1.2000, 1.2004))
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(1.2002)))
}

func TestExchangeRateInvertsReversedPair(t *testing.T) {
	calc := engine.NewExchangeRateCalculator("USD", "SIM")

	rate, ok := calc.Rate("CHF", snapshotWith("USDCHF", 2, 2))
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(0.5)))
}

func TestExchangeRateMissingTick(t *testing.T) {
	calc := engine.NewExchangeRateCalculator("USD", "SIM")

	_, ok := calc.Rate("JPY", engine.TickSnapshot{})
	assert.False(t, ok)
}
