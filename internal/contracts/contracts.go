// Package contracts defines the external collaborator interfaces the
// engine consumes: DataClient, ExecutionClient and Portfolio.
// They live in their own package, beneath both internal/engine and
// internal/ledger, so that either can depend on them without the two
// depending on each other.
package contracts

import (
	"time"

	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// DataClient is the external market-data collaborator. All
// callbacks it invokes (on_bar, on_tick) MUST already be marshaled onto
// the engine's single dispatcher thread -- the engine performs no
// synchronization of its own.
type DataClient interface {
	Symbols() []types.Symbol
	GetInstrument(sym types.Symbol) (types.Instrument, bool)
	HistoricalBars(bt types.BarType, quantity int, onBar func(types.Bar)) error
	HistoricalBarsFrom(bt types.BarType, from time.Time, onBar func(types.Bar)) error
	SubscribeBars(bt types.BarType, onBar func(types.Bar))
	UnsubscribeBars(bt types.BarType, onBar func(types.Bar))
	SubscribeTicks(sym types.Symbol, onTick func(types.Tick))
	UnsubscribeTicks(sym types.Symbol, onTick func(types.Tick))
	SubscribeInstrument(sym types.Symbol)
}

// ExecutionClient is the external order-execution collaborator.
type ExecutionClient interface {
	ExecuteCommand(cmd types.Command) error
	GetOrder(id types.OrderID) (types.Order, bool)
	GetOrders(strategy types.StrategyID) []types.Order
	GetOrdersActive(strategy types.StrategyID) []types.Order
	GetOrdersCompleted(strategy types.StrategyID) []types.Order
	GetPortfolio() Portfolio
	GetAccount() Account
	OrderExists(id types.OrderID) bool
	OrderActive(id types.OrderID) bool
	OrderComplete(id types.OrderID) bool
}

// Portfolio is the external position-tracking collaborator.
type Portfolio interface {
	GetPosition(id types.PositionID) (types.Position, bool)
	GetPositions(strategy types.StrategyID) []types.Position
	GetPositionsActive(strategy types.StrategyID) []types.Position
	GetPositionsClosed(strategy types.StrategyID) []types.Position
	GetPositionForOrder(id types.OrderID) (types.Position, bool)
	PositionExists(id types.PositionID) bool
	StrategyFlat(strategy types.StrategyID) bool
}

// Account is an opaque account snapshot as reported by the execution
// client (balances, margin); the engine treats it as a value to surface
// to the strategy, not to interpret.
type Account struct {
	TraderID  types.TraderID
	Currency  types.Currency
	Balance   types.Price
	Available types.Price
	AsOf      time.Time
}
