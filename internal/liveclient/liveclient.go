// Package liveclient provides concrete DataClient and ExecutionClient
// implementations over a WebSocket transport. It is not part of the
// engine core: the core depends only on internal/contracts, and this
// package is one way of satisfying those contracts against a real
// venue.
package liveclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// wireMessage is the JSON envelope the venue's market-data feed sends
// over the WebSocket connection.
type wireMessage struct {
	Type      string          `json:"type"` // "bar", "tick", "instrument"
	Symbol    string          `json:"symbol"`
	Venue     string          `json:"venue"`
	BarSpec   string          `json:"bar_spec,omitempty"` // "1-MINUTE-BID"
	Bid       decimal.Decimal `json:"bid,omitempty"`
	Ask       decimal.Decimal `json:"ask,omitempty"`
	Open      decimal.Decimal `json:"open,omitempty"`
	High      decimal.Decimal `json:"high,omitempty"`
	Low       decimal.Decimal `json:"low,omitempty"`
	Close     decimal.Decimal `json:"close,omitempty"`
	Volume    decimal.Decimal `json:"volume,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// DataClient is a WebSocket-backed contracts.DataClient. A single
// connection carries every subscribed symbol/bar-type; subscribe/
// unsubscribe just add or remove entries from the local callback
// registries -- the venue is assumed to multiplex on symbol/bar-spec
// fields in each inbound message rather than per-subscription sockets.
type DataClient struct {
	logger *zap.Logger
	url    string

	mu           sync.RWMutex
	conn         *websocket.Conn
	instruments  map[string]types.Instrument
	symbols      []types.Symbol
	tickHandlers map[string][]func(types.Tick)
	barHandlers  map[types.BarType][]func(types.Bar)

	done chan struct{}
}

// New creates a DataClient that will dial url on Connect.
func New(logger *zap.Logger, url string) *DataClient {
	return &DataClient{
		logger:       logger.Named("liveclient"),
		url:          url,
		instruments:  make(map[string]types.Instrument),
		tickHandlers: make(map[string][]func(types.Tick)),
		barHandlers:  make(map[types.BarType][]func(types.Bar)),
		done:         make(chan struct{}),
	}
}

// Connect dials the configured URL and starts the read pump in a
// background goroutine. The caller's registered on_tick/on_bar callbacks
// are invoked from that goroutine -- it is the caller's responsibility
// to marshal them onto the engine's single dispatcher thread, as the
// engine requires of any DataClient implementation.
func (c *DataClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing market data feed %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readPump()
	return nil
}

// Close stops the read pump and closes the underlying connection.
func (c *DataClient) Close() error {
	close(c.done)
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *DataClient) readPump() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("market data read failed", zap.Error(err))
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			c.logger.Warn("market data message decode failed", zap.Error(err))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *DataClient) dispatch(msg wireMessage) {
	ts := time.Unix(0, msg.Timestamp*int64(time.Millisecond))
	sym := types.NewSymbol(msg.Symbol, msg.Venue)

	switch msg.Type {
	case "tick":
		tick := types.Tick{Symbol: sym, Bid: types.Price(msg.Bid), Ask: types.Price(msg.Ask), Timestamp: ts}
		c.mu.RLock()
		handlers := append([]func(types.Tick){}, c.tickHandlers[sym.String()]...)
		c.mu.RUnlock()
		for _, h := range handlers {
			h(tick)
		}

	case "bar":
		bar := types.Bar{
			Open: types.Price(msg.Open), High: types.Price(msg.High),
			Low: types.Price(msg.Low), Close: types.Price(msg.Close),
			Volume: types.Quantity(msg.Volume), Timestamp: ts,
		}
		bt := types.BarType{Symbol: sym, Spec: parseBarSpec(msg.BarSpec)}
		c.mu.RLock()
		handlers := append([]func(types.Bar){}, c.barHandlers[bt]...)
		c.mu.RUnlock()
		for _, h := range handlers {
			h(bar)
		}
	}
}

func parseBarSpec(s string) types.BarSpecification {
	parts := strings.SplitN(s, "-", 3)
	if len(parts) != 3 {
		return types.BarSpecification{}
	}
	step, err := strconv.Atoi(parts[0])
	if err != nil {
		return types.BarSpecification{}
	}
	return types.BarSpecification{StepSize: step, Aggregation: parts[1], PriceType: parts[2]}
}

// Symbols returns the subscribed instrument symbols.
func (c *DataClient) Symbols() []types.Symbol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.Symbol{}, c.symbols...)
}

// GetInstrument looks up a previously-subscribed instrument's metadata.
func (c *DataClient) GetInstrument(sym types.Symbol) (types.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.instruments[sym.String()]
	return i, ok
}

// HistoricalBars is not implemented by this demonstration transport --
// a production venue adapter would issue a REST call here. It reports
// no bars rather than blocking, so a caller wiring this up against a
// real venue knows to replace it.
func (c *DataClient) HistoricalBars(bt types.BarType, quantity int, onBar func(types.Bar)) error {
	c.logger.Warn("historical_bars not implemented by the demonstration WebSocket client", zap.String("bar_type", bt.String()))
	return nil
}

// HistoricalBarsFrom mirrors HistoricalBars' limitation.
func (c *DataClient) HistoricalBarsFrom(bt types.BarType, from time.Time, onBar func(types.Bar)) error {
	c.logger.Warn("historical_bars_from not implemented by the demonstration WebSocket client", zap.String("bar_type", bt.String()))
	return nil
}

// SubscribeBars registers onBar to receive bar messages for bt.
func (c *DataClient) SubscribeBars(bt types.BarType, onBar func(types.Bar)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.barHandlers[bt] = append(c.barHandlers[bt], onBar)
}

// UnsubscribeBars removes every handler registered for bt. The venue
// connection itself is left open: subscribe/unsubscribe is a
// callback-registry operation, not a socket-level one, on this
// multiplexed transport.
func (c *DataClient) UnsubscribeBars(bt types.BarType, onBar func(types.Bar)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.barHandlers, bt)
}

// SubscribeTicks registers onTick to receive tick messages for sym.
func (c *DataClient) SubscribeTicks(sym types.Symbol, onTick func(types.Tick)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickHandlers[sym.String()] = append(c.tickHandlers[sym.String()], onTick)
}

// UnsubscribeTicks removes every handler registered for sym.
func (c *DataClient) UnsubscribeTicks(sym types.Symbol, onTick func(types.Tick)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tickHandlers, sym.String())
}

// SubscribeInstrument marks sym as subscribed so Symbols() reports it;
// instrument metadata arrives out of band via SeedInstrument.
func (c *DataClient) SubscribeInstrument(sym types.Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.symbols {
		if existing == sym {
			return
		}
	}
	c.symbols = append(c.symbols, sym)
}

// SeedInstrument records sym's instrument metadata, as would arrive from
// a venue's instrument-definition channel.
func (c *DataClient) SeedInstrument(i types.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments[i.Symbol.String()] = i
}

var _ contracts.DataClient = (*DataClient)(nil)
