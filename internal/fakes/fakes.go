// Package fakes provides in-memory DataClient/ExecutionClient/Portfolio
// implementations of internal/contracts for tests: deterministic,
// synchronous, single-threaded doubles suitable for driving the engine
// under a TestClock.
package fakes

import (
	"time"

	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// DataClient is an in-memory contracts.DataClient. Historical bars are
// pre-seeded by the test; subscriptions are tracked but the fake never
// delivers anything on its own -- the test drives delivery by calling
// the Host's HandleBar/HandleTick directly.
type DataClient struct {
	symbols     []types.Symbol
	instruments map[string]types.Instrument
	history     map[types.BarType][]types.Bar
}

// NewDataClient creates an empty DataClient fake.
func NewDataClient() *DataClient {
	return &DataClient{instruments: make(map[string]types.Instrument), history: make(map[types.BarType][]types.Bar)}
}

// SeedInstrument registers an instrument for subsequent GetInstrument calls.
func (d *DataClient) SeedInstrument(i types.Instrument) {
	d.instruments[i.Symbol.String()] = i
	d.symbols = append(d.symbols, i.Symbol)
}

// SeedHistory sets the historical bars HistoricalBars will replay for bt.
func (d *DataClient) SeedHistory(bt types.BarType, bars []types.Bar) {
	d.history[bt] = bars
}

func (d *DataClient) Symbols() []types.Symbol { return d.symbols }

func (d *DataClient) GetInstrument(sym types.Symbol) (types.Instrument, bool) {
	i, ok := d.instruments[sym.String()]
	return i, ok
}

func (d *DataClient) HistoricalBars(bt types.BarType, quantity int, onBar func(types.Bar)) error {
	bars := d.history[bt]
	if quantity > 0 && quantity < len(bars) {
		bars = bars[len(bars)-quantity:]
	}
	for _, b := range bars {
		onBar(b)
	}
	return nil
}

func (d *DataClient) HistoricalBarsFrom(bt types.BarType, from time.Time, onBar func(types.Bar)) error {
	for _, b := range d.history[bt] {
		if !b.Timestamp.Before(from) {
			onBar(b)
		}
	}
	return nil
}

func (d *DataClient) SubscribeBars(types.BarType, func(types.Bar))     {}
func (d *DataClient) UnsubscribeBars(types.BarType, func(types.Bar))   {}
func (d *DataClient) SubscribeTicks(types.Symbol, func(types.Tick))    {}
func (d *DataClient) UnsubscribeTicks(types.Symbol, func(types.Tick))  {}
func (d *DataClient) SubscribeInstrument(types.Symbol)                 {}

var _ contracts.DataClient = (*DataClient)(nil)
