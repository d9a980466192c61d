package engine

import (
	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// two is used to compute the bid/ask midpoint without going through a
// float division.
var two = decimal.NewFromInt(2)

// TickSnapshot is the per-symbol bid/ask map the engine supplies to the
// exchange-rate helper; the engine itself never looks inside a
// TickSnapshot beyond indexing by symbol code.
type TickSnapshot map[string]types.Tick

// ExchangeRateCalculator computes a MID cross rate between a quote
// currency and the account's base currency from the current tick
// snapshot. The engine only supplies symbol lookups; rate composition
// (e.g. chaining through a third currency) is left to the caller's
// symbol-naming convention and is opaque to the engine.
type ExchangeRateCalculator struct {
	baseCurrency types.Currency
	venue        string
}

// NewExchangeRateCalculator creates a calculator for the given account
// base currency, resolving quote symbols against venue.
func NewExchangeRateCalculator(baseCurrency types.Currency, venue string) *ExchangeRateCalculator {
	return &ExchangeRateCalculator{baseCurrency: baseCurrency, venue: venue}
}

// Rate returns the MID rate converting 1 unit of quote into the account's
// base currency, using snapshot's bid/ask for the quote/base symbol (or
// the inverse of the base/quote symbol's mid). It returns (1, true) if
// quote == base, (rate, true) on success, or (zero, false) if the
// required tick is missing from snapshot.
func (c *ExchangeRateCalculator) Rate(quote types.Currency, snapshot TickSnapshot) (types.Price, bool) {
	if quote == c.baseCurrency {
		return decimal.NewFromInt(1), true
	}

	sym := types.NewSymbol(string(quote)+string(c.baseCurrency), c.venue)
	if tick, ok := snapshot[sym.String()]; ok {
		return tick.Bid.Add(tick.Ask).Div(two), true
	}

	inverse := types.NewSymbol(string(c.baseCurrency)+string(quote), c.venue)
	if tick, ok := snapshot[inverse.String()]; ok {
		mid := tick.Bid.Add(tick.Ask).Div(two)
		if mid.IsZero() {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(1).Div(mid), true
	}

	return decimal.Zero, false
}
