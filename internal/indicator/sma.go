package indicator

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// SMA is a simple moving average over bar close prices. It only
// reports Initialized once a full period of bars has been seen -- this
// is the warm-up gating the registry's Initialized/InitializedAll
// depend on.
type SMA struct {
	period int
	values []decimal.Decimal
	sum    decimal.Decimal
}

// NewSMA creates an SMA over the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period, values: make([]decimal.Decimal, 0, period)}
}

// Update feeds the bar's close price into the average.
func (s *SMA) Update(bar types.Bar) {
	value := decimal.Decimal(bar.Close)
	s.values = append(s.values, value)
	s.sum = s.sum.Add(value)

	if len(s.values) > s.period {
		s.sum = s.sum.Sub(s.values[0])
		s.values = s.values[1:]
	}
}

// Reset clears the window.
func (s *SMA) Reset() {
	s.values = s.values[:0]
	s.sum = decimal.Zero
}

// Initialized reports whether a full period of bars has been seen.
func (s *SMA) Initialized() bool { return len(s.values) >= s.period }

// Value returns the current average over the window seen so far.
func (s *SMA) Value() types.Price {
	if len(s.values) == 0 {
		return types.Price(decimal.Zero)
	}
	return types.Price(s.sum.Div(decimal.NewFromInt(int64(len(s.values)))))
}
