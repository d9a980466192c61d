package fakes

import (
	"time"

	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// ExecutionClient is an in-memory contracts.ExecutionClient plus
// contracts.Portfolio double. It never rejects or fills an order on its
// own -- tests drive the order lifecycle explicitly via Reject/Fill/
// Cancel/Modified/CancelReject, then deliver the resulting types.Event to the Host
// under test, mirroring how a live client would marshal venue callbacks
// onto the dispatcher thread.
type ExecutionClient struct {
	orders        map[types.OrderID]types.Order
	active        map[types.OrderID]bool
	strategyOf    map[types.OrderID]types.StrategyID
	positions     map[types.PositionID]types.Position
	positionOrder map[types.OrderID]types.PositionID
	account       contracts.Account
	currentPrice  map[types.OrderID]types.Price

	// Commands records every command ExecuteCommand was asked to send, in
	// order, for tests asserting P7 (determinism) and the end-to-end
	// scenarios.
	Commands []types.Command
}

// NewExecutionClient creates an empty ExecutionClient fake.
func NewExecutionClient(account contracts.Account) *ExecutionClient {
	return &ExecutionClient{
		orders:        make(map[types.OrderID]types.Order),
		active:        make(map[types.OrderID]bool),
		strategyOf:    make(map[types.OrderID]types.StrategyID),
		positions:     make(map[types.PositionID]types.Position),
		positionOrder: make(map[types.OrderID]types.PositionID),
		account:       account,
		currentPrice:  make(map[types.OrderID]types.Price),
	}
}

// ExecuteCommand records cmd and, for submissions, marks every order
// involved as active and tagged to cmd.Strategy.
func (e *ExecutionClient) ExecuteCommand(cmd types.Command) error {
	e.Commands = append(e.Commands, cmd)

	switch cmd.Kind {
	case types.CommandSubmitOrder:
		e.track(cmd.Order, cmd.Strategy, cmd.PositionID)
	case types.CommandSubmitAtomicOrder:
		e.track(cmd.Atomic.Entry, cmd.Strategy, cmd.PositionID)
		e.track(cmd.Atomic.StopLoss, cmd.Strategy, cmd.PositionID)
		if cmd.Atomic.TakeProfit != nil {
			e.track(*cmd.Atomic.TakeProfit, cmd.Strategy, cmd.PositionID)
		}
	case types.CommandModifyOrder:
		// Submitting a modify does not itself move the venue's
		// acknowledged price -- that only happens when the test calls
		// SetCurrentPrice to simulate the ack arriving.
	case types.CommandCancelOrder:
		delete(e.active, cmd.Order.ID)
	}
	return nil
}

func (e *ExecutionClient) track(order types.Order, strategy types.StrategyID, positionID types.PositionID) {
	e.orders[order.ID] = order
	e.active[order.ID] = true
	e.strategyOf[order.ID] = strategy
	e.positionOrder[order.ID] = positionID
}

func (e *ExecutionClient) GetOrder(id types.OrderID) (types.Order, bool) {
	o, ok := e.orders[id]
	return o, ok
}

func (e *ExecutionClient) GetOrders(strategy types.StrategyID) []types.Order {
	var out []types.Order
	for id, o := range e.orders {
		if e.strategyOf[id] == strategy {
			out = append(out, o)
		}
	}
	return out
}

func (e *ExecutionClient) GetOrdersActive(strategy types.StrategyID) []types.Order {
	var out []types.Order
	for id, o := range e.orders {
		if e.strategyOf[id] == strategy && e.active[id] {
			out = append(out, o)
		}
	}
	return out
}

func (e *ExecutionClient) GetOrdersCompleted(strategy types.StrategyID) []types.Order {
	var out []types.Order
	for id, o := range e.orders {
		if e.strategyOf[id] == strategy && !e.active[id] {
			out = append(out, o)
		}
	}
	return out
}

func (e *ExecutionClient) GetPortfolio() contracts.Portfolio { return e }

func (e *ExecutionClient) GetAccount() contracts.Account { return e.account }

func (e *ExecutionClient) OrderExists(id types.OrderID) bool {
	_, ok := e.orders[id]
	return ok
}

func (e *ExecutionClient) OrderActive(id types.OrderID) bool { return e.active[id] }

func (e *ExecutionClient) OrderComplete(id types.OrderID) bool {
	_, ok := e.orders[id]
	return ok && !e.active[id]
}

// -- contracts.Portfolio --

// SeedPosition installs a position the fake will report for GetPosition
// and related Portfolio accessors.
func (e *ExecutionClient) SeedPosition(strategy types.StrategyID, position types.Position) {
	e.positions[position.ID] = position
	e.positionOrder[position.EntryOrder.ID] = position.ID
	e.strategyOf[position.EntryOrder.ID] = strategy
}

func (e *ExecutionClient) GetPosition(id types.PositionID) (types.Position, bool) {
	p, ok := e.positions[id]
	return p, ok
}

func (e *ExecutionClient) GetPositions(strategy types.StrategyID) []types.Position {
	var out []types.Position
	for _, p := range e.positions {
		if e.strategyOf[p.EntryOrder.ID] == strategy {
			out = append(out, p)
		}
	}
	return out
}

func (e *ExecutionClient) GetPositionsActive(strategy types.StrategyID) []types.Position {
	var out []types.Position
	for _, p := range e.GetPositions(strategy) {
		if !p.IsFlat() {
			out = append(out, p)
		}
	}
	return out
}

func (e *ExecutionClient) GetPositionsClosed(strategy types.StrategyID) []types.Position {
	var out []types.Position
	for _, p := range e.GetPositions(strategy) {
		if p.IsFlat() {
			out = append(out, p)
		}
	}
	return out
}

func (e *ExecutionClient) GetPositionForOrder(orderID types.OrderID) (types.Position, bool) {
	positionID, ok := e.positionOrder[orderID]
	if !ok {
		return types.Position{}, false
	}
	return e.GetPosition(positionID)
}

func (e *ExecutionClient) PositionExists(id types.PositionID) bool {
	_, ok := e.positions[id]
	return ok
}

func (e *ExecutionClient) StrategyFlat(strategy types.StrategyID) bool {
	for _, p := range e.GetPositionsActive(strategy) {
		if !p.IsFlat() {
			return false
		}
	}
	return true
}

// -- Test-driven lifecycle events --

// Reject builds an OrderRejected event for id and marks it inactive.
func (e *ExecutionClient) Reject(id types.OrderID, reason string, ts time.Time) types.Event {
	delete(e.active, id)
	return types.NewOrderRejected(id, reason, ts)
}

// Cancel builds an OrderCancelled event for id and marks it inactive.
func (e *ExecutionClient) Cancel(id types.OrderID, ts time.Time) types.Event {
	delete(e.active, id)
	return types.NewOrderCancelled(id, ts)
}

// Fill builds an OrderFilled event for id, marks it inactive, and records
// the fill against the order's position if one is seeded.
func (e *ExecutionClient) Fill(id types.OrderID, price types.Price, qty types.Quantity, ts time.Time) types.Event {
	delete(e.active, id)
	if positionID, ok := e.positionOrder[id]; ok {
		if p, ok := e.positions[positionID]; ok {
			p.Fills = append(p.Fills, types.Fill{OrderID: id, Price: price, Quantity: qty, Timestamp: ts})
			e.positions[positionID] = p
		}
	}
	return types.NewOrderFilled(id, price, qty, ts)
}

// SetCurrentPrice sets the live price the fake reports for an order via
// the CurrentPrice field of OrderModified/OrderCancelReject events built
// by Modified/CancelReject.
func (e *ExecutionClient) SetCurrentPrice(id types.OrderID, price types.Price) {
	e.currentPrice[id] = price
}

// Modified builds an OrderModified event reporting the order's current
// live price (as set by SetCurrentPrice).
func (e *ExecutionClient) Modified(id types.OrderID, ts time.Time) types.Event {
	return types.NewOrderModified(id, e.currentPrice[id], ts)
}

// CancelReject builds an OrderCancelReject event reporting the order's
// current live price.
func (e *ExecutionClient) CancelReject(id types.OrderID, reason string, ts time.Time) types.Event {
	return types.NewOrderCancelReject(id, reason, e.currentPrice[id], ts)
}

var (
	_ contracts.ExecutionClient = (*ExecutionClient)(nil)
	_ contracts.Portfolio       = (*ExecutionClient)(nil)
)
