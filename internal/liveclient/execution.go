package liveclient

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// wireCommand is the JSON envelope sent to the venue for a types.Command.
type wireCommand struct {
	CorrelationID string          `json:"correlation_id"`
	Kind          string          `json:"kind"`
	Trader        string          `json:"trader"`
	Strategy      string          `json:"strategy"`
	PositionID    string          `json:"position_id,omitempty"`
	OrderID       string          `json:"order_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side,omitempty"`
	Quantity      decimal.Decimal `json:"quantity,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	NewPrice      *decimal.Decimal `json:"new_price,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// wireReport is the JSON envelope the venue sends back for fills,
// rejections, cancels and acks.
type wireReport struct {
	Kind         string           `json:"kind"`
	OrderID      string           `json:"order_id"`
	Reason       string           `json:"reason,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	FillQty      decimal.Decimal  `json:"fill_qty,omitempty"`
	Timestamp    int64            `json:"timestamp"`
}

// ExecutionClient is a WebSocket-backed contracts.ExecutionClient and
// contracts.Portfolio. It sends commands as JSON over the connection,
// tags each with a uuid correlation id distinct from the engine's own
// deterministic OrderId, and turns inbound execution reports into
// types.Event values delivered to a registered handler -- the caller is
// responsible for marshaling that handler onto the engine's single
// dispatcher thread, exactly as it must for DataClient callbacks.
type ExecutionClient struct {
	logger *zap.Logger
	url    string

	mu        sync.Mutex
	conn      *websocket.Conn
	orders    map[types.OrderID]types.Order
	active    map[types.OrderID]bool
	strategyOf map[types.OrderID]types.StrategyID
	positions map[types.PositionID]types.Position
	account   contracts.Account

	handler func(types.Event)
	done    chan struct{}
}

// NewExecutionClient creates an ExecutionClient that will dial url on Connect.
func NewExecutionClient(logger *zap.Logger, url string) *ExecutionClient {
	return &ExecutionClient{
		logger:     logger.Named("liveclient-exec"),
		url:        url,
		orders:     make(map[types.OrderID]types.Order),
		active:     make(map[types.OrderID]bool),
		strategyOf: make(map[types.OrderID]types.StrategyID),
		positions:  make(map[types.PositionID]types.Position),
		done:       make(chan struct{}),
	}
}

// RegisterHandler wires the callback invoked for every inbound execution
// report, translated into a types.Event.
func (e *ExecutionClient) RegisterHandler(h func(types.Event)) { e.handler = h }

// Connect dials the configured URL and starts the report read pump.
func (e *ExecutionClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	if err != nil {
		return fmt.Errorf("dialing execution venue %s: %w", e.url, err)
	}
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()
	go e.readPump()
	return nil
}

// Close stops the read pump and closes the connection.
func (e *ExecutionClient) Close() error {
	close(e.done)
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (e *ExecutionClient) readPump() {
	for {
		select {
		case <-e.done:
			return
		default:
		}
		e.mu.Lock()
		conn := e.conn
		e.mu.Unlock()
		if conn == nil {
			return
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			e.logger.Warn("execution report read failed", zap.Error(err))
			return
		}
		var report wireReport
		if err := json.Unmarshal(payload, &report); err != nil {
			e.logger.Warn("execution report decode failed", zap.Error(err))
			continue
		}
		e.handleReport(report)
	}
}

func (e *ExecutionClient) handleReport(r wireReport) {
	id := types.OrderID(r.OrderID)
	ts := time.Unix(0, r.Timestamp*int64(time.Millisecond))

	var ev types.Event
	switch r.Kind {
	case "rejected":
		e.markTerminal(id)
		ev = types.NewOrderRejected(id, r.Reason, ts)
	case "cancelled":
		e.markTerminal(id)
		ev = types.NewOrderCancelled(id, ts)
	case "expired":
		e.markTerminal(id)
		ev = types.NewOrderExpired(id, ts)
	case "filled":
		e.markTerminal(id)
		ev = types.NewOrderFilled(id, priceOrZero(r.Price), types.Quantity(r.FillQty), ts)
	case "partially_filled":
		ev = types.NewOrderPartiallyFilled(id, priceOrZero(r.Price), types.Quantity(r.FillQty), ts)
	case "modified":
		ev = types.NewOrderModified(id, priceOrZero(r.CurrentPrice), ts)
	case "cancel_reject":
		ev = types.NewOrderCancelReject(id, r.Reason, priceOrZero(r.CurrentPrice), ts)
	default:
		e.logger.Warn("unknown execution report kind", zap.String("kind", r.Kind))
		return
	}

	if r.Price != nil {
		e.mu.Lock()
		if order, ok := e.orders[id]; ok {
			order.Price = priceRef(types.Price(*r.Price))
			e.orders[id] = order
		}
		e.mu.Unlock()
	}

	if e.handler != nil {
		e.handler(ev)
	}
}

func (e *ExecutionClient) markTerminal(id types.OrderID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active[id] = false
}

func priceOrZero(p *decimal.Decimal) types.Price {
	if p == nil {
		return decimal.Zero
	}
	return types.Price(*p)
}

func priceRef(p types.Price) *types.Price { return &p }

// ExecuteCommand sends cmd to the venue as JSON, tagged with a uuid
// correlation id, and records every order it names as active.
func (e *ExecutionClient) ExecuteCommand(cmd types.Command) error {
	cmd.CorrelationID = uuid.NewString()

	e.mu.Lock()
	conn := e.conn
	e.track(cmd.Order, cmd.Trader, cmd.Strategy, cmd.PositionID)
	if cmd.Atomic != nil {
		e.track(cmd.Atomic.StopLoss, cmd.Trader, cmd.Strategy, cmd.PositionID)
		if cmd.Atomic.TakeProfit != nil {
			e.track(*cmd.Atomic.TakeProfit, cmd.Trader, cmd.Strategy, cmd.PositionID)
		}
	}
	e.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("execute command %s: not connected", cmd.Kind)
	}

	wire := wireCommand{
		CorrelationID: cmd.CorrelationID,
		Kind:          string(cmd.Kind),
		Trader:        string(cmd.Trader),
		Strategy:      string(cmd.Strategy),
		PositionID:    string(cmd.PositionID),
		OrderID:       string(cmd.Order.ID),
		Symbol:        cmd.Order.Symbol.String(),
		Side:          string(cmd.Order.Side),
		Quantity:      decimal.Decimal(cmd.Order.Quantity),
		NewPrice:      decimalRef(cmd.NewPrice),
		Reason:        cmd.Reason,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("encoding command %s: %w", cmd.Kind, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("sending command %s: %w", cmd.Kind, err)
	}
	return nil
}

func decimalRef(p *types.Price) *decimal.Decimal {
	if p == nil {
		return nil
	}
	d := decimal.Decimal(*p)
	return &d
}

func (e *ExecutionClient) track(order types.Order, trader types.TraderID, strategy types.StrategyID, positionID types.PositionID) {
	if order.ID == "" {
		return
	}
	e.orders[order.ID] = order
	e.active[order.ID] = true
	e.strategyOf[order.ID] = strategy
}

// GetOrder returns the last known state of id.
func (e *ExecutionClient) GetOrder(id types.OrderID) (types.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	return o, ok
}

// GetOrders returns every order ever tracked for strategy.
func (e *ExecutionClient) GetOrders(strategy types.StrategyID) []types.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.Order
	for id, s := range e.strategyOf {
		if s == strategy {
			out = append(out, e.orders[id])
		}
	}
	return out
}

// GetOrdersActive returns every order still active for strategy.
func (e *ExecutionClient) GetOrdersActive(strategy types.StrategyID) []types.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.Order
	for id, s := range e.strategyOf {
		if s == strategy && e.active[id] {
			out = append(out, e.orders[id])
		}
	}
	return out
}

// GetOrdersCompleted returns every order no longer active for strategy.
func (e *ExecutionClient) GetOrdersCompleted(strategy types.StrategyID) []types.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.Order
	for id, s := range e.strategyOf {
		if s == strategy && !e.active[id] {
			out = append(out, e.orders[id])
		}
	}
	return out
}

// GetPortfolio returns the execution client itself, which also
// implements contracts.Portfolio over the same in-memory position map.
func (e *ExecutionClient) GetPortfolio() contracts.Portfolio { return e }

// GetAccount returns the most recently seeded account snapshot.
func (e *ExecutionClient) GetAccount() contracts.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account
}

// SeedAccount sets the account snapshot GetAccount will return, as would
// arrive from the venue's account channel.
func (e *ExecutionClient) SeedAccount(a contracts.Account) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account = a
}

// OrderExists reports whether id has ever been tracked.
func (e *ExecutionClient) OrderExists(id types.OrderID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.orders[id]
	return ok
}

// OrderActive reports whether id is currently active.
func (e *ExecutionClient) OrderActive(id types.OrderID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[id]
}

// OrderComplete reports whether id exists but is no longer active.
func (e *ExecutionClient) OrderComplete(id types.OrderID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.orders[id]
	return ok && !e.active[id]
}

// GetPosition looks up a position by id.
func (e *ExecutionClient) GetPosition(id types.PositionID) (types.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[id]
	return p, ok
}

// GetPositions returns every position ever recorded; the demonstration
// transport does not itself tag positions by strategy, so it returns the
// full set regardless of strategy.
func (e *ExecutionClient) GetPositions(strategy types.StrategyID) []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Position, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	return out
}

// GetPositionsActive returns every non-flat position.
func (e *ExecutionClient) GetPositionsActive(strategy types.StrategyID) []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.Position
	for _, p := range e.positions {
		if !p.IsFlat() {
			out = append(out, p)
		}
	}
	return out
}

// GetPositionsClosed returns every flat position.
func (e *ExecutionClient) GetPositionsClosed(strategy types.StrategyID) []types.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []types.Position
	for _, p := range e.positions {
		if p.IsFlat() {
			out = append(out, p)
		}
	}
	return out
}

// GetPositionForOrder is not resolvable by this demonstration transport
// without a venue-side order->position channel; it reports not-found.
func (e *ExecutionClient) GetPositionForOrder(id types.OrderID) (types.Position, bool) {
	return types.Position{}, false
}

// PositionExists reports whether id has been recorded.
func (e *ExecutionClient) PositionExists(id types.PositionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.positions[id]
	return ok
}

// StrategyFlat reports whether every recorded position is flat.
func (e *ExecutionClient) StrategyFlat(strategy types.StrategyID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.positions {
		if !p.IsFlat() {
			return false
		}
	}
	return true
}

// SeedPosition records a position as would arrive from the venue's
// position channel.
func (e *ExecutionClient) SeedPosition(p types.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.positions[p.ID] = p
}

var (
	_ contracts.ExecutionClient = (*ExecutionClient)(nil)
	_ contracts.Portfolio       = (*ExecutionClient)(nil)
)
