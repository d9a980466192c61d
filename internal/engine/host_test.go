package engine_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/atlas-desktop/strategy-engine/internal/clock"
	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/internal/engine"
	"github.com/atlas-desktop/strategy-engine/internal/fakes"
	"github.com/atlas-desktop/strategy-engine/pkg/errs"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

const (
	trader   = types.TraderID("T1")
	strategy = types.StrategyID("S1")
)

func baseConfig() engine.Config {
	return engine.Config{
		Trader:      trader,
		Strategy:    strategy,
		BarCapacity: 10,
	}
}

// recordingStrategy captures every hook invocation it receives; it is
// used across tests instead of a one-off anonymous type per test.
type recordingStrategy struct {
	engine.BaseStrategy
	stopped    bool
	savedState map[string]string
	loaded     map[string]string
	onBar      func(h *engine.Host, bt types.BarType, bar types.Bar)
}

func (s *recordingStrategy) OnStop(h *engine.Host) { s.stopped = true }

func (s *recordingStrategy) OnSave(h *engine.Host) map[string]string { return s.savedState }

func (s *recordingStrategy) OnLoad(h *engine.Host, state map[string]string) { s.loaded = state }

func (s *recordingStrategy) OnBar(h *engine.Host, bt types.BarType, bar types.Bar) {
	if s.onBar != nil {
		s.onBar(h, bt, bar)
	}
}

func entryOrder(id types.OrderID) types.Order {
	return types.Order{ID: id, Side: types.OrderSideBuy, Quantity: decimal.NewFromInt(1), Purpose: types.PurposeEntry, State: types.OrderStateInitialized}
}

// scenario 5: stop sequence with two active positions and a working
// entry order, flatten_on_stop and cancel_all_orders_on_stop both set.
func TestHostStopFlattensThenCancelsThenWarnsThenOnStop(t *testing.T) {
	exec := fakes.NewExecutionClient(contracts.Account{})
	exec.SeedPosition(strategy, types.Position{
		ID: "P1", MarketPosition: types.MarketPositionLong, Quantity: decimal.NewFromInt(1),
		EntryOrder: types.Order{ID: "O-P1", Side: types.OrderSideBuy},
		Fills:      []types.Fill{{OrderID: "O-P1", Price: decimal.NewFromFloat(1.1), Quantity: decimal.NewFromInt(1)}},
	})
	exec.SeedPosition(strategy, types.Position{
		ID: "P2", MarketPosition: types.MarketPositionShort, Quantity: decimal.NewFromInt(1),
		EntryOrder: types.Order{ID: "O-P2", Side: types.OrderSideSell},
		Fills:      []types.Fill{{OrderID: "O-P2", Price: decimal.NewFromFloat(1.3), Quantity: decimal.NewFromInt(1)}},
	})

	clk := clock.NewTestClock(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	cfg := baseConfig()
	cfg.FlattenOnStop = true
	cfg.CancelAllOrdersOnStop = true

	strat := &recordingStrategy{}
	h := engine.NewHost(logger, cfg, fakes.NewDataClient(), exec, exec, clk, strat)

	h.Start()
	require.NoError(t, h.SubmitEntryOrder(entryOrder("O-working"), "P-working"))

	h.Stop()

	assert.False(t, h.Running())
	assert.True(t, strat.stopped)

	var flattenIdx, cancelIdx []int
	for i, cmd := range exec.Commands {
		switch cmd.Kind {
		case types.CommandSubmitOrder:
			if cmd.Order.Purpose == types.PurposeExit {
				flattenIdx = append(flattenIdx, i)
			}
		case types.CommandCancelOrder:
			cancelIdx = append(cancelIdx, i)
		}
	}
	require.Len(t, flattenIdx, 2, "expected a flatten exit for each active position")
	require.Len(t, cancelIdx, 1, "expected the one working entry order to be cancelled")
	for _, fi := range flattenIdx {
		assert.Less(t, fi, cancelIdx[0], "flattens must be submitted before cancels")
	}

	var sawResidualWarning bool
	for _, entry := range logs.All() {
		if entry.Level == zap.WarnLevel {
			sawResidualWarning = true
		}
	}
	assert.True(t, sawResidualWarning, "expected a residual-order warning for the cancelled entry")
}

// R1: on_save -> reset -> on_load round-trips the strategy's opaque state.
func TestHostSaveResetLoadRoundTrip(t *testing.T) {
	clk := clock.NewTestClock(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	exec := fakes.NewExecutionClient(contracts.Account{})
	strat := &recordingStrategy{savedState: map[string]string{"ema_state": "1.2345"}}
	h := engine.NewHost(zap.NewNop(), baseConfig(), fakes.NewDataClient(), exec, exec, clk, strat)

	h.Start()
	saved := h.Save()
	require.Equal(t, strat.savedState, saved)

	h.Stop()
	require.NoError(t, h.Reset())

	h.Load(saved)
	assert.Equal(t, saved, strat.loaded)
}

func TestHostResetRefusesWhileRunning(t *testing.T) {
	clk := clock.NewTestClock(time.Now())
	exec := fakes.NewExecutionClient(contracts.Account{})
	h := engine.NewHost(zap.NewNop(), baseConfig(), fakes.NewDataClient(), exec, exec, clk, &recordingStrategy{})

	h.Start()
	err := h.Reset()
	assert.ErrorIs(t, err, errs.ErrPrecondition)
}

type panickingStrategy struct {
	engine.BaseStrategy
}

func (panickingStrategy) OnTick(*engine.Host, types.Tick) { panic("strategy bug") }

// A panic escaping a user hook is caught and logged; the host keeps
// running and keeps updating its caches.
func TestHostIsolatesHookPanics(t *testing.T) {
	clk := clock.NewTestClock(time.Now())
	exec := fakes.NewExecutionClient(contracts.Account{})
	core, logs := observer.New(zap.ErrorLevel)
	h := engine.NewHost(zap.New(core), baseConfig(), fakes.NewDataClient(), exec, exec, clk, panickingStrategy{})

	h.Start()

	sym := types.NewSymbol("EURUSD", "SIM")
	price := decimal.NewFromFloat(1.2)
	require.NotPanics(t, func() {
		h.HandleTick(types.Tick{Symbol: sym, Bid: price, Ask: price, Timestamp: clk.TimeNow()})
	})

	assert.True(t, h.Running())
	_, err := h.Cache.LastTick(sym)
	assert.NoError(t, err, "tick cache must still be updated when the hook panics")

	var sawPanicLog bool
	for _, entry := range logs.All() {
		if entry.Message == "user hook panicked" {
			sawPanicLog = true
		}
	}
	assert.True(t, sawPanicLog)
}

// P7: replaying the same bar sequence against two independently
// constructed hosts under identical TestClocks produces an identical
// outbound command sequence.
func TestHostDeterministicReplayProducesIdenticalCommands(t *testing.T) {
	runOnce := func() []types.Command {
		clk := clock.NewTestClock(time.Date(2020, 3, 14, 9, 0, 0, 0, time.UTC))
		exec := fakes.NewExecutionClient(contracts.Account{})
		bt := types.BarType{Symbol: types.NewSymbol("EURUSD", "SIM")}

		strat := &recordingStrategy{}
		strat.onBar = func(h *engine.Host, bt types.BarType, bar types.Bar) {
			id := h.OrderIDs.Generate()
			_ = h.SubmitEntryOrder(entryOrder(types.OrderID(id)), types.PositionID(id))
		}

		h := engine.NewHost(zap.NewNop(), baseConfig(), fakes.NewDataClient(), exec, exec, clk, strat)
		h.Start()

		for i := 0; i < 5; i++ {
			close := decimal.NewFromInt(int64(100 + i))
			h.HandleBar(bt, types.Bar{Open: close, High: close, Low: close, Close: close, Volume: decimal.Zero, Timestamp: clk.TimeNow()})
		}

		return exec.Commands
	}

	first := runOnce()
	second := runOnce()

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Order.ID, second[i].Order.ID)
		assert.Equal(t, first[i].PositionID, second[i].PositionID)
		assert.Equal(t, first[i].Kind, second[i].Kind)
	}
}
