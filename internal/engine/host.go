package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/internal/clock"
	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/internal/idgen"
	"github.com/atlas-desktop/strategy-engine/internal/indicator"
	"github.com/atlas-desktop/strategy-engine/internal/ledger"
	"github.com/atlas-desktop/strategy-engine/internal/marketdata"
	"github.com/atlas-desktop/strategy-engine/internal/metrics"
	"github.com/atlas-desktop/strategy-engine/pkg/errs"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// LifecycleState is the host's position in the CREATED -> RUNNING ->
// STOPPED -> DISPOSED state machine.
type LifecycleState string

const (
	StateCreated  LifecycleState = "CREATED"
	StateRunning  LifecycleState = "RUNNING"
	StateStopped  LifecycleState = "STOPPED"
	StateDisposed LifecycleState = "DISPOSED"
)

// Host is the strategy host & event dispatcher: the
// single entry point for external-world input, owning the market-data
// cache, indicator registry, order/position ledger, clock and identifier
// generators for one strategy instance. It is not safe for concurrent
// use -- all of its methods must be called from the single dispatcher
// thread of control.
type Host struct {
	logger *zap.Logger
	cfg    Config
	data   contracts.DataClient
	exec   contracts.ExecutionClient
	folio  contracts.Portfolio
	clk    clock.Clock

	Cache      *marketdata.BarCache
	Indicators *indicator.Registry
	Ledger     *ledger.Ledger
	OrderIDs   *idgen.Generator
	PosIDs     *idgen.Generator
	Rates      *ExchangeRateCalculator

	strategy Strategy
	state    LifecycleState

	metrics *metrics.Collectors
}

// HostOption configures optional Host collaborators at construction time.
type HostOption func(*Host)

// WithExchangeRateCalculator attaches an ExchangeRateCalculator.
func WithExchangeRateCalculator(c *ExchangeRateCalculator) HostOption {
	return func(h *Host) { h.Rates = c }
}

// WithMetrics attaches a metrics.Collectors the host reports dispatch
// latency, bar throughput and order outcomes to. Without this option the
// host runs with metrics disabled.
func WithMetrics(m *metrics.Collectors) HostOption {
	return func(h *Host) { h.metrics = m }
}

// NewHost wires a fresh Host: market-data cache, indicator registry,
// ledger, and the OrderId/PositionId generators bound to clk. The host
// starts in CREATED state.
func NewHost(logger *zap.Logger, cfg Config, data contracts.DataClient, exec contracts.ExecutionClient, folio contracts.Portfolio, clk clock.Clock, strategy Strategy, opts ...HostOption) *Host {
	named := logger.Named("host").Named(string(cfg.Strategy))

	h := &Host{
		logger:     named,
		cfg:        cfg,
		data:       data,
		exec:       exec,
		folio:      folio,
		clk:        clk,
		Cache:      marketdata.New(named, marketdata.WithCapacity(cfg.BarCapacity)),
		Indicators: indicator.NewRegistry(),
		OrderIDs:   idgen.New("O", string(cfg.Trader), string(cfg.Strategy), clk),
		PosIDs:     idgen.New("P", string(cfg.Trader), string(cfg.Strategy), clk),
		strategy:   strategy,
		state:      StateCreated,
	}
	// The closure reads h.OrderIDs at call time so flatten exits keep
	// using the current generator after ChangeClock rebuilds it.
	h.Ledger = ledger.New(named, cfg.Trader, cfg.Strategy, exec, folio,
		func() types.OrderID { return types.OrderID(h.OrderIDs.Generate()) },
		cfg.FlattenOnSLReject)
	for _, opt := range opts {
		opt(h)
	}

	clk.RegisterLogger(named)
	clk.RegisterHandler(func(label string, firedAt time.Time) {
		h.HandleEvent(types.NewTimeEvent(label, firedAt))
	})

	return h
}

// State returns the host's current lifecycle state.
func (h *Host) State() LifecycleState { return h.state }

// Running reports whether the host is in RUNNING state.
func (h *Host) Running() bool { return h.state == StateRunning }

// Clock exposes the clock seam to the strategy.
func (h *Host) Clock() clock.Clock { return h.clk }

// Account returns the current account snapshot from the execution client.
func (h *Host) Account() contracts.Account { return h.exec.GetAccount() }

// Instruments returns the data client's subscribed symbols. This mirrors
// the source engine's `instruments()` accessor, which likewise returns
// `self._data_client.symbols` rather than resolved Instrument objects --
// preserved here rather than silently fixed.
func (h *Host) Instruments() []types.Symbol { return h.data.Symbols() }

// callHook invokes fn and recovers any panic escaping it, logging it as a
// UserHookFailure rather than letting it propagate. The host
// remains in its prior lifecycle state regardless.
func (h *Host) callHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("user hook panicked",
				zap.String("hook", name),
				zap.Any("recovered", r),
			)
		}
	}()
	fn()
}

// Start sets running=true then calls on_start.
func (h *Host) Start() {
	h.state = StateRunning
	h.callHook("on_start", func() { h.strategy.OnStart(h) })
}

// Stop performs the ordered shutdown sequence: cancel all
// timers/alerts, optionally flatten every position, optionally cancel
// every active order other than EXIT orders (so the flatten exits stay
// working), set running=false, warn about residual ledger state, then
// call on_stop.
func (h *Host) Stop() {
	h.clk.CancelAllTimers()
	h.clk.CancelAllTimeAlerts()

	if h.cfg.FlattenOnStop && !h.folio.StrategyFlat(h.cfg.Strategy) {
		if err := h.Ledger.FlattenAllPositions(); err != nil {
			h.logger.Error("flatten_all_positions on stop failed", zap.Error(err))
		}
	}

	if h.cfg.CancelAllOrdersOnStop {
		for _, order := range h.exec.GetOrdersActive(h.cfg.Strategy) {
			if order.Purpose == types.PurposeExit {
				continue
			}
			if err := h.Ledger.CancelOrder(order, "strategy stopped"); err != nil {
				h.logger.Error("cancel_all_orders on stop failed", zap.Error(err))
				break
			}
		}
	}

	h.state = StateStopped

	h.warnResiduals()

	h.callHook("on_stop", func() { h.strategy.OnStop(h) })
}

func (h *Host) warnResiduals() {
	entries, stopLosses, takeProfits, atomicParents, buffered := h.Ledger.Residuals()
	for _, id := range entries {
		h.logger.Warn("residual entry order at stop", zap.String("order_id", string(id)))
	}
	for _, id := range stopLosses {
		h.logger.Warn("residual stop-loss order at stop", zap.String("order_id", string(id)))
	}
	for _, id := range takeProfits {
		h.logger.Warn("residual take-profit order at stop", zap.String("order_id", string(id)))
	}
	for _, id := range atomicParents {
		h.logger.Warn("residual atomic-order children at stop", zap.String("parent_order_id", string(id)))
	}
	for _, id := range buffered {
		h.logger.Warn("residual buffered modify at stop", zap.String("order_id", string(id)))
	}
}

// Reset refuses while running; otherwise clears the tick/bar cache,
// resets every indicator, resets the identifier generators, then calls
// on_reset.
func (h *Host) Reset() error {
	if h.state == StateRunning {
		return &errs.Precondition{Op: "reset", Reason: "cannot reset while running"}
	}

	h.Cache.Reset()
	h.Indicators.Reset()
	h.OrderIDs.Reset()
	h.PosIDs.Reset()

	h.callHook("on_reset", func() { h.strategy.OnReset(h) })
	return nil
}

// Dispose calls on_dispose (errors logged, not raised) and transitions to
// DISPOSED, releasing the host's external-client references.
func (h *Host) Dispose() {
	h.callHook("on_dispose", func() { h.strategy.OnDispose(h) })
	h.state = StateDisposed
	h.data = nil
	h.exec = nil
	h.folio = nil
}

// Save calls on_save and returns the strategy's opaque persisted state.
func (h *Host) Save() map[string]string {
	var state map[string]string
	h.callHook("on_save", func() { state = h.strategy.OnSave(h) })
	return state
}

// Load calls on_load with a previously saved state map.
func (h *Host) Load(state map[string]string) {
	h.callHook("on_load", func() { h.strategy.OnLoad(h, state) })
}

// HandleTick sets the last-tick cache entry then, if running, calls
// on_tick.
func (h *Host) HandleTick(tick types.Tick) {
	h.Cache.UpdateTick(tick.Symbol, tick)
	if h.Running() {
		h.callHook("on_tick", func() { h.strategy.OnTick(h, tick) })
	}
}

// HandleBar appends bar to the bounded history for barType, feeds every
// indicator bound to barType (before on_bar, so indicators reflect the
// latest bar when the hook runs), then, if running, calls on_bar.
func (h *Host) HandleBar(barType types.BarType, bar types.Bar) {
	start := time.Now()
	h.Cache.AddBar(barType, bar)
	h.Indicators.Feed(barType, bar)
	if h.Running() {
		h.callHook("on_bar", func() { h.strategy.OnBar(h, barType, bar) })
	}
	if h.metrics != nil {
		h.metrics.BarsProcessed.WithLabelValues(barType.String()).Inc()
		h.metrics.DispatchLatency.Observe(time.Since(start).Seconds())
	}
}

// HandleInstrument forwards an instrument update to on_instrument while
// running.
func (h *Host) HandleInstrument(instrument types.Instrument) {
	if h.Running() {
		h.callHook("on_instrument", func() { h.strategy.OnInstrument(h, instrument) })
	}
}

// HandleEvent dispatches ev into the order-event reducer, then, if
// running, calls on_event.
func (h *Host) HandleEvent(ev types.Event) {
	if h.metrics != nil {
		h.recordOrderMetric(ev)
	}

	if err := h.Ledger.Reduce(ev); err != nil {
		h.logger.Error("ledger reduce failed", zap.Error(err), zap.String("event_kind", string(ev.Kind)))
	}
	if h.Running() {
		h.callHook("on_event", func() { h.strategy.OnEvent(h, ev) })
	}
}

// recordOrderMetric increments the rejected or filled counter matching
// ev (submissions are counted by the Submit* wrappers), labeled by the order's purpose as currently known to the
// ledger. Must run before Ledger.Reduce, which may remove the order from
// its register.
func (h *Host) recordOrderMetric(ev types.Event) {
	purpose, ok := h.Ledger.PurposeOf(ev.OrderID)
	if !ok {
		purpose = types.PurposeNone
	}
	switch ev.Kind {
	case types.EventOrderRejected:
		h.metrics.OrdersRejected.WithLabelValues(string(purpose)).Inc()
	case types.EventOrderFilled:
		h.metrics.OrdersFilled.WithLabelValues(string(purpose)).Inc()
	}
}

// SubmitEntryOrder registers and submits an entry order through the
// ledger, recording the submission in metrics if enabled. This, not
// Ledger.SubmitEntryOrder directly, is the method strategies should
// call.
func (h *Host) SubmitEntryOrder(order types.Order, positionID types.PositionID) error {
	if h.metrics != nil {
		h.metrics.OrdersSubmitted.WithLabelValues(string(types.PurposeEntry)).Inc()
	}
	return h.Ledger.SubmitEntryOrder(order, positionID)
}

// SubmitStopLossOrder registers and submits a stop-loss order through the
// ledger, recording the submission in metrics if enabled.
func (h *Host) SubmitStopLossOrder(order types.Order, positionID types.PositionID) error {
	if h.metrics != nil {
		h.metrics.OrdersSubmitted.WithLabelValues(string(types.PurposeStopLoss)).Inc()
	}
	return h.Ledger.SubmitStopLossOrder(order, positionID)
}

// SubmitTakeProfitOrder registers and submits a take-profit order through
// the ledger, recording the submission in metrics if enabled.
func (h *Host) SubmitTakeProfitOrder(order types.Order, positionID types.PositionID) error {
	if h.metrics != nil {
		h.metrics.OrdersSubmitted.WithLabelValues(string(types.PurposeTakeProfit)).Inc()
	}
	return h.Ledger.SubmitTakeProfitOrder(order, positionID)
}

// SubmitAtomicOrder registers and submits an atomic order through the
// ledger, recording the entry-leg submission in metrics if enabled.
func (h *Host) SubmitAtomicOrder(atomic types.AtomicOrder, positionID types.PositionID) error {
	if h.metrics != nil {
		h.metrics.OrdersSubmitted.WithLabelValues(string(types.PurposeEntry)).Inc()
	}
	return h.Ledger.SubmitAtomicOrder(atomic, positionID)
}

// ModifyOrder forwards to the ledger's modify-coalescing buffer.
func (h *Host) ModifyOrder(order types.Order, newPrice types.Price) error {
	return h.Ledger.ModifyOrder(order, newPrice)
}

// CancelOrder forwards to the ledger.
func (h *Host) CancelOrder(order types.Order, reason string) error {
	return h.Ledger.CancelOrder(order, reason)
}

// CancelAllOrders forwards to the ledger.
func (h *Host) CancelAllOrders(reason string) error {
	return h.Ledger.CancelAllOrders(reason)
}

// FlattenPosition forwards to the ledger.
func (h *Host) FlattenPosition(positionID types.PositionID) error {
	return h.Ledger.FlattenPosition(positionID)
}

// FlattenAllPositions forwards to the ledger.
func (h *Host) FlattenAllPositions() error {
	return h.Ledger.FlattenAllPositions()
}

// CollateralInquiry forwards to the ledger.
func (h *Host) CollateralInquiry() error {
	return h.Ledger.CollateralInquiry()
}

// ChangeClock swaps the clock the host depends on and rebuilds the
// OrderId/PositionId generators against it. It exists for backtests that
// re-run a strategy against a fresh TestClock. The old clock's handler
// registration is left untouched; callers must not reuse the old clock
// afterward.
func (h *Host) ChangeClock(clk clock.Clock) {
	h.clk = clk
	h.OrderIDs = idgen.New("O", string(h.cfg.Trader), string(h.cfg.Strategy), clk)
	h.PosIDs = idgen.New("P", string(h.cfg.Trader), string(h.cfg.Strategy), clk)
	clk.RegisterLogger(h.logger)
	clk.RegisterHandler(func(label string, firedAt time.Time) {
		h.HandleEvent(types.NewTimeEvent(label, firedAt))
	})
}
