package types

import "time"

// EventKind tags the variant of an Event so the ledger's reducer and the
// dispatcher can switch on it without a type assertion chain.
type EventKind string

const (
	EventOrderRejected        EventKind = "ORDER_REJECTED"
	EventOrderCancelled       EventKind = "ORDER_CANCELLED"
	EventOrderModified        EventKind = "ORDER_MODIFIED"
	EventOrderCancelReject    EventKind = "ORDER_CANCEL_REJECT"
	EventOrderFilled          EventKind = "ORDER_FILLED"
	EventOrderPartiallyFilled EventKind = "ORDER_PARTIALLY_FILLED"
	EventOrderExpired         EventKind = "ORDER_EXPIRED"
	EventAccount              EventKind = "ACCOUNT"
	EventPosition             EventKind = "POSITION"
	EventTime                 EventKind = "TIME"
)

// Event is the tagged union the event dispatcher and order-event reducer
// operate over. Kind identifies the active variant; only the
// corresponding accessor fields are meaningful.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	// Order-event fields (OrderRejected .. OrderExpired).
	OrderID OrderID
	Reason  string // rejection/cancel-reject reason, if any
	Price   *Price // fill price, for OrderFilled/OrderPartiallyFilled
	FillQty Quantity

	// OrderModified / OrderCancelReject carry the order's current live
	// price as reported by the execution client, used by the ledger's
	// modify-buffer drain to decide whether to re-issue.
	CurrentPrice *Price

	// AccountEvent / PositionEvent fields.
	PositionID PositionID

	// TimeEvent fields.
	TimerLabel string
}

// NewOrderRejected builds an OrderRejected event.
func NewOrderRejected(id OrderID, reason string, ts time.Time) Event {
	return Event{Kind: EventOrderRejected, OrderID: id, Reason: reason, Timestamp: ts}
}

// NewOrderCancelled builds an OrderCancelled event.
func NewOrderCancelled(id OrderID, ts time.Time) Event {
	return Event{Kind: EventOrderCancelled, OrderID: id, Timestamp: ts}
}

// NewOrderFilled builds an OrderFilled event.
func NewOrderFilled(id OrderID, price Price, qty Quantity, ts time.Time) Event {
	return Event{Kind: EventOrderFilled, OrderID: id, Price: &price, FillQty: qty, Timestamp: ts}
}

// NewOrderPartiallyFilled builds an OrderPartiallyFilled event.
func NewOrderPartiallyFilled(id OrderID, price Price, qty Quantity, ts time.Time) Event {
	return Event{Kind: EventOrderPartiallyFilled, OrderID: id, Price: &price, FillQty: qty, Timestamp: ts}
}

// NewOrderExpired builds an OrderExpired event.
func NewOrderExpired(id OrderID, ts time.Time) Event {
	return Event{Kind: EventOrderExpired, OrderID: id, Timestamp: ts}
}

// NewOrderModified builds an OrderModified event reporting the order's
// live current price at the execution client.
func NewOrderModified(id OrderID, currentPrice Price, ts time.Time) Event {
	return Event{Kind: EventOrderModified, OrderID: id, CurrentPrice: &currentPrice, Timestamp: ts}
}

// NewOrderCancelReject builds an OrderCancelReject event.
func NewOrderCancelReject(id OrderID, reason string, currentPrice Price, ts time.Time) Event {
	return Event{Kind: EventOrderCancelReject, OrderID: id, Reason: reason, CurrentPrice: &currentPrice, Timestamp: ts}
}

// NewTimeEvent builds a TimeEvent for a fired timer or alert.
func NewTimeEvent(label string, ts time.Time) Event {
	return Event{Kind: EventTime, TimerLabel: label, Timestamp: ts}
}

// Command is the tagged union of outbound instructions the ledger issues
// to the execution client.
type CommandKind string

const (
	CommandSubmitOrder       CommandKind = "SUBMIT_ORDER"
	CommandSubmitAtomicOrder CommandKind = "SUBMIT_ATOMIC_ORDER"
	CommandModifyOrder       CommandKind = "MODIFY_ORDER"
	CommandCancelOrder       CommandKind = "CANCEL_ORDER"
	CommandCollateralInquiry CommandKind = "COLLATERAL_INQUIRY"
)

// Command is forwarded to the ExecutionClient by the ledger. It carries an
// immutable snapshot of the order(s) involved -- the ledger never hands
// out a live, mutable reference across the execution-command boundary.
type Command struct {
	Kind       CommandKind
	Trader     TraderID
	Strategy   StrategyID
	PositionID PositionID
	Order      Order
	Atomic     *AtomicOrder
	NewPrice   *Price
	Reason     string

	// CorrelationID tags the command for venue-side tracing. It is a
	// transport-layer identifier distinct from the deterministic OrderID
	// the engine itself generates.
	CorrelationID string
}
