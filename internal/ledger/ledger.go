// Package ledger implements the engine's order & position ledger: the
// entry/stop-loss/take-profit registers, the atomic parent->children
// map, the modify-buffer, and the order-event reducer that drives them
// from execution reports.
package ledger

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/internal/contracts"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// modifyCmd is the buffered in-flight modification for a single OrderID.
type modifyCmd struct {
	order    types.Order
	newPrice types.Price
}

// Ledger owns the three flat order registers, the atomic-order map and
// the modify-buffer, and reduces incoming Events against them. It is
// owned by a single strategy instance and is not safe for concurrent
// use.
type Ledger struct {
	logger   *zap.Logger
	trader   types.TraderID
	strategy types.StrategyID
	exec     contracts.ExecutionClient
	folio    contracts.Portfolio

	entryOrders      map[types.OrderID]types.Order
	stopLossOrders   map[types.OrderID]types.Order
	takeProfitOrders map[types.OrderID]types.Order
	atomicChildren   map[types.OrderID][]types.OrderID
	modifyBuffer     map[types.OrderID]modifyCmd

	// orderPosition tracks which position an order was submitted against,
	// needed by the OrderRejected/flatten-on-reject path since the
	// execution client's GetPositionForOrder may already have forgotten a
	// never-accepted order.
	orderPosition map[types.OrderID]types.PositionID

	// nextOrderID mints the OrderID for exit orders the ledger builds
	// itself when flattening. The host wires this to its order-id
	// generator so flatten exits share the strategy's id sequence.
	nextOrderID func() types.OrderID

	flattenOnSLReject bool
}

// New creates an empty Ledger bound to trader/strategy tags and the
// external execution/portfolio collaborators.
func New(logger *zap.Logger, trader types.TraderID, strategy types.StrategyID, exec contracts.ExecutionClient, folio contracts.Portfolio, nextOrderID func() types.OrderID, flattenOnSLReject bool) *Ledger {
	return &Ledger{
		logger:            logger.Named("ledger"),
		trader:            trader,
		strategy:          strategy,
		exec:              exec,
		folio:             folio,
		entryOrders:       make(map[types.OrderID]types.Order),
		stopLossOrders:    make(map[types.OrderID]types.Order),
		takeProfitOrders:  make(map[types.OrderID]types.Order),
		atomicChildren:    make(map[types.OrderID][]types.OrderID),
		modifyBuffer:      make(map[types.OrderID]modifyCmd),
		orderPosition:     make(map[types.OrderID]types.PositionID),
		nextOrderID:       nextOrderID,
		flattenOnSLReject: flattenOnSLReject,
	}
}

// PurposeOf reports which register currently holds id, if any. Callers
// (e.g. metrics instrumentation) use it before Reduce removes a terminal
// order from its register.
func (l *Ledger) PurposeOf(id types.OrderID) (types.OrderPurpose, bool) {
	if _, ok := l.entryOrders[id]; ok {
		return types.PurposeEntry, true
	}
	if _, ok := l.stopLossOrders[id]; ok {
		return types.PurposeStopLoss, true
	}
	if _, ok := l.takeProfitOrders[id]; ok {
		return types.PurposeTakeProfit, true
	}
	return types.PurposeNone, false
}

// SubmitOrder forwards a SubmitOrder command tagged with trader, strategy
// and positionID.
func (l *Ledger) SubmitOrder(order types.Order, positionID types.PositionID) error {
	l.orderPosition[order.ID] = positionID
	return l.exec.ExecuteCommand(types.Command{
		Kind:       types.CommandSubmitOrder,
		Trader:     l.trader,
		Strategy:   l.strategy,
		PositionID: positionID,
		Order:      order,
	})
}

// SubmitEntryOrder registers order in entryOrders then submits it.
func (l *Ledger) SubmitEntryOrder(order types.Order, positionID types.PositionID) error {
	l.entryOrders[order.ID] = order
	return l.SubmitOrder(order, positionID)
}

// SubmitStopLossOrder registers order in stopLossOrders then submits it.
func (l *Ledger) SubmitStopLossOrder(order types.Order, positionID types.PositionID) error {
	l.stopLossOrders[order.ID] = order
	return l.SubmitOrder(order, positionID)
}

// SubmitTakeProfitOrder registers order in takeProfitOrders then submits it.
func (l *Ledger) SubmitTakeProfitOrder(order types.Order, positionID types.PositionID) error {
	l.takeProfitOrders[order.ID] = order
	return l.SubmitOrder(order, positionID)
}

// SubmitAtomicOrder registers every leg of atomic in its matching
// register, records the parent->children mapping, and forwards a single
// SubmitAtomicOrder command.
func (l *Ledger) SubmitAtomicOrder(atomic types.AtomicOrder, positionID types.PositionID) error {
	l.entryOrders[atomic.Entry.ID] = atomic.Entry
	l.stopLossOrders[atomic.StopLoss.ID] = atomic.StopLoss
	if atomic.TakeProfit != nil {
		l.takeProfitOrders[atomic.TakeProfit.ID] = *atomic.TakeProfit
	}
	l.atomicChildren[atomic.Entry.ID] = atomic.ChildIDs()

	l.orderPosition[atomic.Entry.ID] = positionID
	l.orderPosition[atomic.StopLoss.ID] = positionID
	if atomic.TakeProfit != nil {
		l.orderPosition[atomic.TakeProfit.ID] = positionID
	}

	return l.exec.ExecuteCommand(types.Command{
		Kind:       types.CommandSubmitAtomicOrder,
		Trader:     l.trader,
		Strategy:   l.strategy,
		PositionID: positionID,
		Order:      atomic.Entry,
		Atomic:     &atomic,
	})
}

// ModifyOrder coalesces in-flight modifications: if a pending modify
// already exists for id, it is replaced (with a warning) rather than
// stacked, since only one modify can be in flight at a time.
func (l *Ledger) ModifyOrder(order types.Order, newPrice types.Price) error {
	if _, exists := l.modifyBuffer[order.ID]; exists {
		l.logger.Warn("replacing in-flight modify", zap.String("order_id", string(order.ID)))
		l.modifyBuffer[order.ID] = modifyCmd{order: order, newPrice: newPrice}
		return nil
	}
	l.modifyBuffer[order.ID] = modifyCmd{order: order, newPrice: newPrice}

	return l.exec.ExecuteCommand(types.Command{
		Kind:     types.CommandModifyOrder,
		Trader:   l.trader,
		Strategy: l.strategy,
		Order:    order,
		NewPrice: &newPrice,
	})
}

// CollateralInquiry forwards a CollateralInquiry command to the execution
// client. The ledger does not track any
// state for it; the execution client reports the result asynchronously
// as an AccountEvent.
func (l *Ledger) CollateralInquiry() error {
	return l.exec.ExecuteCommand(types.Command{
		Kind:     types.CommandCollateralInquiry,
		Trader:   l.trader,
		Strategy: l.strategy,
	})
}

// CancelOrder forwards a CancelOrder command for order.
func (l *Ledger) CancelOrder(order types.Order, reason string) error {
	return l.exec.ExecuteCommand(types.Command{
		Kind:     types.CommandCancelOrder,
		Trader:   l.trader,
		Strategy: l.strategy,
		Order:    order,
		Reason:   reason,
	})
}

// CancelAllOrders forwards CancelOrder for every active order the
// execution client associates with this strategy.
func (l *Ledger) CancelAllOrders(reason string) error {
	for _, order := range l.exec.GetOrdersActive(l.strategy) {
		if err := l.CancelOrder(order, reason); err != nil {
			return err
		}
	}
	return nil
}

// FlattenPosition builds and submits a market EXIT order on the opposite
// side of position's entry, sized at the position's full quantity. If the
// position is already flat it warns and returns nil.
func (l *Ledger) FlattenPosition(positionID types.PositionID) error {
	position, ok := l.folio.GetPosition(positionID)
	if !ok {
		l.logger.Warn("flatten_position: unknown position", zap.String("position_id", string(positionID)))
		return nil
	}
	if position.IsFlat() {
		l.logger.Warn("flatten_position: already flat", zap.String("position_id", string(positionID)))
		return nil
	}

	exit := types.Order{
		ID:       l.nextOrderID(),
		Symbol:   position.Symbol,
		Side:     position.EntryOrder.Side.Opposite(),
		Quantity: position.Quantity,
		Purpose:  types.PurposeExit,
		TIF:      types.TimeInForceGTC,
		State:    types.OrderStateInitialized,
	}
	return l.SubmitOrder(exit, positionID)
}

// FlattenAllPositions flattens every active position for this strategy,
// skipping (with a warning) any that are already flat.
func (l *Ledger) FlattenAllPositions() error {
	for _, position := range l.folio.GetPositionsActive(l.strategy) {
		if position.IsFlat() {
			l.logger.Warn("flatten_all_positions: skipping flat position", zap.String("position_id", string(position.ID)))
			continue
		}
		if err := l.FlattenPosition(position.ID); err != nil {
			return err
		}
	}
	return nil
}

// removeFromRegisters deletes id from whichever of the three flat
// registers it is present in.
func (l *Ledger) removeFromRegisters(id types.OrderID) {
	delete(l.entryOrders, id)
	delete(l.stopLossOrders, id)
	delete(l.takeProfitOrders, id)
	delete(l.orderPosition, id)
}

// removeAtomicChildren removes every child order registered under parent
// from their registers and drops the parent->children mapping itself.
func (l *Ledger) removeAtomicChildren(parent types.OrderID) {
	for _, child := range l.atomicChildren[parent] {
		l.removeFromRegisters(child)
	}
	delete(l.atomicChildren, parent)
}

func (l *Ledger) isStopLoss(id types.OrderID) bool {
	_, ok := l.stopLossOrders[id]
	return ok
}

// hasStopLossProtection reports whether id is itself a registered
// stop-loss order, or is an atomic parent with a stop-loss child -- i.e.
// whether rejecting id means the position's stop-loss protection never
// reached the venue.
func (l *Ledger) hasStopLossProtection(id types.OrderID) bool {
	if l.isStopLoss(id) {
		return true
	}
	for _, child := range l.atomicChildren[id] {
		if l.isStopLoss(child) {
			return true
		}
	}
	return false
}

// Reduce applies ev to the ledger, issuing any cascading commands
// (flatten-on-reject) as a side effect. It returns an error only if a cascading command failed to
// submit; ledger-state cleanup itself never fails.
func (l *Ledger) Reduce(ev types.Event) error {
	switch ev.Kind {
	case types.EventOrderRejected:
		if l.hasStopLossProtection(ev.OrderID) && l.flattenOnSLReject {
			if positionID, ok := l.orderPosition[ev.OrderID]; ok {
				if position, ok := l.folio.GetPosition(positionID); ok && position.IsEntered() {
					if err := l.FlattenPosition(positionID); err != nil {
						return fmt.Errorf("flatten on stop-loss reject: %w", err)
					}
				}
			}
		}
		l.removeAtomicChildren(ev.OrderID)
		l.removeFromRegisters(ev.OrderID)

	case types.EventOrderCancelled, types.EventOrderExpired:
		l.removeAtomicChildren(ev.OrderID)
		l.removeFromRegisters(ev.OrderID)

	case types.EventOrderFilled:
		if _, isParent := l.atomicChildren[ev.OrderID]; isParent {
			delete(l.atomicChildren, ev.OrderID)
		}
		l.removeFromRegisters(ev.OrderID)

	case types.EventOrderPartiallyFilled:
		l.logger.Info("partial fill", zap.String("order_id", string(ev.OrderID)), zap.Stringer("qty", ev.FillQty))

	case types.EventOrderModified, types.EventOrderCancelReject:
		if err := l.drainModifyBuffer(ev); err != nil {
			return err
		}
	}
	return nil
}

// drainModifyBuffer implements the modify-buffer drain: if
// the buffered price differs from the order's current live price, the
// buffered modification is re-issued -- this resolves the race where a
// second modify request (P2) arrived while the first (P1) was still in
// flight. The buffer entry is removed either way.
func (l *Ledger) drainModifyBuffer(ev types.Event) error {
	buffered, ok := l.modifyBuffer[ev.OrderID]
	if !ok {
		return nil
	}
	delete(l.modifyBuffer, ev.OrderID)

	if ev.CurrentPrice == nil || buffered.newPrice.Equal(*ev.CurrentPrice) {
		return nil
	}

	order, ok := l.exec.GetOrder(ev.OrderID)
	if !ok {
		order = buffered.order
	}
	return l.ModifyOrder(order, buffered.newPrice)
}

// Residuals reports every OrderID left in the flat registers, every
// atomic parent still carrying unacknowledged children, and every
// OrderID with an in-flight modify -- used by stop() to
// warn about state left behind at shutdown.
func (l *Ledger) Residuals() (entries, stopLosses, takeProfits, atomicParents, buffered []types.OrderID) {
	for id := range l.entryOrders {
		entries = append(entries, id)
	}
	for id := range l.stopLossOrders {
		stopLosses = append(stopLosses, id)
	}
	for id := range l.takeProfitOrders {
		takeProfits = append(takeProfits, id)
	}
	for id := range l.atomicChildren {
		atomicParents = append(atomicParents, id)
	}
	for id := range l.modifyBuffer {
		buffered = append(buffered, id)
	}
	return
}
