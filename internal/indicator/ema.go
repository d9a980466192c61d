package indicator

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// EMA is an exponential moving average over bar close prices, adapted from
// the project's decimal-based EMA calculator. The recursive update itself
// is unchanged from that calculator (first bar seeds the average, every
// later bar blends it toward the new value); Initialized is gated on
// having observed a full `period` bars, not just the first one, so a
// strategy reading Value() before warm-up doesn't see a noisy one-bar
// seed masquerading as a settled average.
type EMA struct {
	period     int
	multiplier decimal.Decimal
	current    decimal.Decimal
	count      int
}

// NewEMA creates an EMA over the given period.
func NewEMA(period int) *EMA {
	mult := decimal.NewFromFloat(2.0 / float64(period+1))
	return &EMA{period: period, multiplier: mult}
}

// Update feeds the bar's close price into the average.
func (e *EMA) Update(bar types.Bar) {
	value := decimal.Decimal(bar.Close)
	if e.count == 0 {
		e.current = value
	} else {
		e.current = value.Sub(e.current).Mul(e.multiplier).Add(e.current)
	}
	e.count++
}

// Reset clears the average back to its un-seeded state.
func (e *EMA) Reset() {
	e.current = decimal.Zero
	e.count = 0
}

// Initialized reports whether a full period of bars has been observed.
func (e *EMA) Initialized() bool { return e.count >= e.period }

// Value returns the current EMA value.
func (e *EMA) Value() types.Price { return types.Price(e.current) }
