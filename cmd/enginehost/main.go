// Command enginehost boots a single strategy instance against either a
// live WebSocket venue or an in-memory test harness, wiring the config,
// logging, metrics and control-surface layers around internal/engine:
// build collaborators, construct a Host, run it until signaled.
//
// The engine takes no locks and is mutated only from one logical thread
// of control. This process owns that thread: a dispatcher goroutine
// drains a single channel of work, and every external entry point --
// market-data callbacks, execution reports, clock fires, HTTP operator
// calls, and this process's own start/stop sequencing -- enqueues onto
// it instead of calling the Host directly.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"flag"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/examples/emacross"
	"github.com/atlas-desktop/strategy-engine/internal/clock"
	"github.com/atlas-desktop/strategy-engine/internal/config"
	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/internal/engine"
	"github.com/atlas-desktop/strategy-engine/internal/fakes"
	"github.com/atlas-desktop/strategy-engine/internal/hostapi"
	"github.com/atlas-desktop/strategy-engine/internal/liveclient"
	"github.com/atlas-desktop/strategy-engine/internal/metrics"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

func main() {
	configFile := flag.String("config", "", "path to a viper config file (optional; env ENGINE_* and defaults otherwise)")
	dataURL := flag.String("data-url", "", "WebSocket URL for the live market-data feed; empty runs against the in-memory fake")
	execURL := flag.String("exec-url", "", "WebSocket URL for the live execution venue; empty runs against the in-memory fake")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve Prometheus metrics on")
	flag.Parse()

	v, cfg, err := config.Load(*configFile)
	if err != nil {
		panic(err)
	}

	logger, err := config.NewLogger(v.GetString("log_level"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collectors := metrics.New(prometheus.DefaultRegisterer)
	go serveMetrics(logger, *metricsAddr)

	data, exec, clk, err := buildCollaborators(logger, *dataURL, *execURL)
	if err != nil {
		logger.Fatal("failed to build collaborators", zap.Error(err))
	}

	symbol := types.NewSymbol("EURUSD", "SIM")
	barType := types.BarType{Symbol: symbol, Spec: types.BarSpecification{StepSize: 1, Aggregation: "MINUTE", PriceType: "BID"}}

	strat := emacross.New(logger, emacross.Config{
		Symbol:      symbol,
		BarType:     barType,
		FastPeriod:  10,
		SlowPeriod:  21,
		ATRPeriod:   14,
		ATRStopMult: decimal.NewFromFloat(1.5),
		ATRTPMult:   decimal.NewFromFloat(3.0),
		TradeQty:    decimal.NewFromInt(1),
	})

	host := engine.NewHost(logger, cfg, data, exec, exec.GetPortfolio(), clk, strat, engine.WithMetrics(collectors))
	disp := newDispatcher(host)

	// NewHost registered itself as the clock's handler, which would run
	// time events on the clock's own delivery goroutine. Re-register so
	// clock fires join the same serialized stream as everything else.
	clk.RegisterHandler(func(label string, firedAt time.Time) {
		disp.Enqueue(func(h *engine.Host) { h.HandleEvent(types.NewTimeEvent(label, firedAt)) })
	})

	// The client callbacks arrive on the clients' own read-pump
	// goroutines; enqueueing is how this process marshals them onto the
	// dispatcher thread, as the contracts require.
	data.SubscribeInstrument(symbol)
	data.SubscribeBars(barType, func(b types.Bar) {
		disp.Enqueue(func(h *engine.Host) { h.HandleBar(barType, b) })
	})
	data.SubscribeTicks(symbol, func(tk types.Tick) {
		disp.Enqueue(func(h *engine.Host) { h.HandleTick(tk) })
	})
	if src, ok := exec.(interface{ RegisterHandler(func(types.Event)) }); ok {
		src.RegisterHandler(func(ev types.Event) {
			disp.Enqueue(func(h *engine.Host) { h.HandleEvent(ev) })
		})
	}

	api := hostapi.NewServer(logger, disp, v.GetString("http.host")+":"+v.GetString("http.port"))
	go func() {
		if err := api.ListenAndServe(); err != nil {
			logger.Error("hostapi stopped", zap.Error(err))
		}
	}()

	disp.Do(func(h *engine.Host) { h.Start() })
	logger.Info("engine host running", zap.String("trader", string(cfg.Trader)), zap.String("strategy", string(cfg.Strategy)))

	<-ctx.Done()
	logger.Info("shutdown signal received")

	disp.Do(func(h *engine.Host) {
		h.Stop()
		h.Dispose()
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error("hostapi shutdown failed", zap.Error(err))
	}
}

// dispatcher owns the engine's single logical thread of control. Work
// enqueued from any goroutine is drained in arrival order by one
// goroutine, which is the only caller of *engine.Host methods in this
// process.
type dispatcher struct {
	host *engine.Host
	work chan func()
}

func newDispatcher(host *engine.Host) *dispatcher {
	d := &dispatcher{host: host, work: make(chan func(), 1024)}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for fn := range d.work {
		fn()
	}
}

// Enqueue schedules fn on the dispatcher goroutine without waiting.
func (d *dispatcher) Enqueue(fn func(h *engine.Host)) {
	d.work <- func() { fn(d.host) }
}

// Do runs fn on the dispatcher goroutine and blocks until it finishes.
func (d *dispatcher) Do(fn func(h *engine.Host)) {
	done := make(chan struct{})
	d.work <- func() {
		fn(d.host)
		close(done)
	}
	<-done
}

// State implements hostapi.Engine.
func (d *dispatcher) State() engine.LifecycleState {
	var s engine.LifecycleState
	d.Do(func(h *engine.Host) { s = h.State() })
	return s
}

// FlattenAllPositions implements hostapi.Engine.
func (d *dispatcher) FlattenAllPositions() error {
	var err error
	d.Do(func(h *engine.Host) { err = h.FlattenAllPositions() })
	return err
}

// buildCollaborators wires the live WebSocket DataClient/ExecutionClient
// pair when both URLs are supplied, or the in-memory fakes otherwise
// (e.g. for a local smoke-test run with no venue available). Either way
// it returns a LiveClock -- the TestClock seam is exercised by the test
// suite, not by this binary.
func buildCollaborators(logger *zap.Logger, dataURL, execURL string) (contracts.DataClient, contracts.ExecutionClient, clock.Clock, error) {
	if dataURL == "" || execURL == "" {
		logger.Warn("data-url/exec-url not set; running against in-memory fakes")
		data := fakes.NewDataClient()
		exec := fakes.NewExecutionClient(contracts.Account{})
		return data, exec, clock.NewLiveClock(logger), nil
	}

	data := liveclient.New(logger, dataURL)
	if err := data.Connect(); err != nil {
		return nil, nil, nil, err
	}

	exec := liveclient.NewExecutionClient(logger, execURL)
	if err := exec.Connect(); err != nil {
		return nil, nil, nil, err
	}

	return data, exec, clock.NewLiveClock(logger), nil
}

func serveMetrics(logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
