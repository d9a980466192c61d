package indicator

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// ATR is an average true range over a Wilder-style exponential window of
// the per-bar true range (max of high-low, high-prevClose, prevClose-low).
// True range needs a previous close, so the first bar only seeds that
// close; Initialized is gated on `period` true-range observations after
// that, matching the warm-up gating of EMA/SMA.
type ATR struct {
	period     int
	multiplier decimal.Decimal
	current    decimal.Decimal
	prevClose  decimal.Decimal
	haveClose  bool
	trCount    int
}

// NewATR creates an ATR over the given period.
func NewATR(period int) *ATR {
	mult := decimal.NewFromFloat(1.0 / float64(period))
	return &ATR{period: period, multiplier: mult}
}

// Update feeds the next bar's true range into the average.
func (a *ATR) Update(bar types.Bar) {
	high := decimal.Decimal(bar.High)
	low := decimal.Decimal(bar.Low)

	if !a.haveClose {
		a.prevClose = decimal.Decimal(bar.Close)
		a.haveClose = true
		return
	}

	tr := high.Sub(low)
	if hc := high.Sub(a.prevClose).Abs(); hc.GreaterThan(tr) {
		tr = hc
	}
	if cl := a.prevClose.Sub(low).Abs(); cl.GreaterThan(tr) {
		tr = cl
	}

	if a.trCount == 0 {
		a.current = tr
	} else {
		a.current = tr.Sub(a.current).Mul(a.multiplier).Add(a.current)
	}
	a.trCount++

	a.prevClose = decimal.Decimal(bar.Close)
}

// Reset clears all state back to un-seeded.
func (a *ATR) Reset() {
	a.current = decimal.Zero
	a.prevClose = decimal.Zero
	a.haveClose = false
	a.trCount = 0
}

// Initialized reports whether a full period of true-range observations
// has been computed.
func (a *ATR) Initialized() bool { return a.trCount >= a.period }

// Value returns the current ATR value.
func (a *ATR) Value() types.Price { return types.Price(a.current) }
