// Package types provides the shared value types of the strategy engine:
// symbols, bars, ticks, instruments, orders, positions and the tagged
// union of execution events the engine reduces over.
package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Price and Quantity are fixed-precision decimals. Money is never
// represented as a float64 anywhere in this module.
type Price = decimal.Decimal
type Quantity = decimal.Decimal

// Symbol is an opaque instrument key: a code scoped to a venue. Equality
// is by value.
type Symbol struct {
	Code  string
	Venue string
}

func NewSymbol(code, venue string) Symbol { return Symbol{Code: code, Venue: venue} }

func (s Symbol) String() string { return fmt.Sprintf("%s.%s", s.Code, s.Venue) }

func (s Symbol) IsZero() bool { return s.Code == "" && s.Venue == "" }

// BarSpecification describes the aggregation rule for a bar stream, e.g.
// 1-MINUTE-BID or 100-TICK-LAST.
type BarSpecification struct {
	StepSize    int
	Aggregation string // "TICK", "SECOND", "MINUTE", "HOUR", "DAY"
	PriceType   string // "BID", "ASK", "MID", "LAST"
}

func (b BarSpecification) String() string {
	return fmt.Sprintf("%d-%s-%s", b.StepSize, b.Aggregation, b.PriceType)
}

// BarType keys a bar stream: it is the unit the market-data cache and
// indicator registry are addressed by.
type BarType struct {
	Symbol Symbol
	Spec   BarSpecification
}

func (bt BarType) String() string { return fmt.Sprintf("%s-%s", bt.Symbol, bt.Spec) }

// Tick is a single bid/ask quote observation. Invariant: Bid <= Ask.
type Tick struct {
	Symbol    Symbol
	Bid       Price
	Ask       Price
	Timestamp time.Time
}

// Valid reports whether the tick satisfies its invariant.
func (t Tick) Valid() bool { return t.Bid.LessThanOrEqual(t.Ask) }

// Bar is an OHLCV candle. Invariants: High >= max(Open, Close),
// Low <= min(Open, Close).
type Bar struct {
	Open      Price
	High      Price
	Low       Price
	Close     Price
	Volume    Quantity
	Timestamp time.Time
}

// Valid reports whether the bar satisfies its OHLC invariants.
func (b Bar) Valid() bool {
	maxOC := b.Open
	if b.Close.GreaterThan(maxOC) {
		maxOC = b.Close
	}
	minOC := b.Open
	if b.Close.LessThan(minOC) {
		minOC = b.Close
	}
	return b.High.GreaterThanOrEqual(maxOC) && b.Low.LessThanOrEqual(minOC)
}

// SecurityType classifies the instrument.
type SecurityType string

const (
	SecurityTypeForex  SecurityType = "FOREX"
	SecurityTypeEquity SecurityType = "EQUITY"
	SecurityTypeCFD    SecurityType = "CFD"
	SecurityTypeCrypto SecurityType = "CRYPTO"
	SecurityTypeFuture SecurityType = "FUTURE"
)

// Currency is a three-letter ISO-ish currency code, value-typed.
type Currency string

// Instrument describes the tradeable properties of a Symbol.
type Instrument struct {
	Symbol        Symbol
	TickSize      Price
	TickPrecision int32
	SecurityType  SecurityType
	BaseCurrency  Currency
	QuoteCurrency Currency
}

// OrderSide is BUY or SELL.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderPurpose tags the role an order plays within a position.
type OrderPurpose string

const (
	PurposeEntry      OrderPurpose = "ENTRY"
	PurposeStopLoss   OrderPurpose = "STOP_LOSS"
	PurposeTakeProfit OrderPurpose = "TAKE_PROFIT"
	PurposeExit       OrderPurpose = "EXIT"
	PurposeNone       OrderPurpose = "NONE"
)

// TimeInForce controls how long a resting order remains workable.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceDAY TimeInForce = "DAY"
	TimeInForceGTD TimeInForce = "GTD"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceIOC TimeInForce = "IOC"
)

// OrderLifecycleState is the order's position in its state machine.
type OrderLifecycleState string

const (
	OrderStateInitialized     OrderLifecycleState = "INITIALIZED"
	OrderStateSubmitted       OrderLifecycleState = "SUBMITTED"
	OrderStateAccepted        OrderLifecycleState = "ACCEPTED"
	OrderStateRejected        OrderLifecycleState = "REJECTED"
	OrderStateCancelled       OrderLifecycleState = "CANCELLED"
	OrderStateExpired         OrderLifecycleState = "EXPIRED"
	OrderStatePartiallyFilled OrderLifecycleState = "PARTIALLY_FILLED"
	OrderStateFilled          OrderLifecycleState = "FILLED"
)

// TraderID, StrategyID, OrderID and PositionID are string-valued value
// objects. OrderID/PositionID are produced only by the generators in
// internal/idgen.
type TraderID string
type StrategyID string
type OrderID string
type PositionID string

// Order is a single order as tracked by the engine's ledger.
type Order struct {
	ID         OrderID
	Symbol     Symbol
	Side       OrderSide
	Quantity   Quantity
	Price      *Price // nil for market orders
	Purpose    OrderPurpose
	TIF        TimeInForce
	ExpireTime *time.Time
	State      OrderLifecycleState
}

// AtomicOrder groups an entry order with its contingent children.
// Invariant: StopLoss.Side == opposite(Entry.Side); if TakeProfit is
// present, TakeProfit.Side == opposite(Entry.Side).
type AtomicOrder struct {
	Entry      Order
	StopLoss   Order
	TakeProfit *Order
}

// Valid reports whether the atomic order's side invariants hold.
func (a AtomicOrder) Valid() bool {
	if a.StopLoss.Side != a.Entry.Side.Opposite() {
		return false
	}
	if a.TakeProfit != nil && a.TakeProfit.Side != a.Entry.Side.Opposite() {
		return false
	}
	return true
}

// ChildIDs returns the order IDs of the atomic order's children, stop-loss
// first, then take-profit if present.
func (a AtomicOrder) ChildIDs() []OrderID {
	ids := []OrderID{a.StopLoss.ID}
	if a.TakeProfit != nil {
		ids = append(ids, a.TakeProfit.ID)
	}
	return ids
}

// MarketPosition is the net directional state of a Position.
type MarketPosition string

const (
	MarketPositionFlat  MarketPosition = "FLAT"
	MarketPositionLong  MarketPosition = "LONG"
	MarketPositionShort MarketPosition = "SHORT"
)

// Fill records a single execution against an order.
type Fill struct {
	OrderID   OrderID
	Price     Price
	Quantity  Quantity
	Timestamp time.Time
}

// Position is the aggregate holding in a Symbol.
type Position struct {
	ID             PositionID
	Symbol         Symbol
	MarketPosition MarketPosition
	Quantity       Quantity
	EntryOrder     Order
	Fills          []Fill
}

// IsFlat reports whether the position carries no net exposure.
func (p Position) IsFlat() bool { return p.MarketPosition == MarketPositionFlat }

// IsEntered reports whether the position has at least one fill recorded,
// i.e. the venue has acknowledged an actual execution against it.
func (p Position) IsEntered() bool { return len(p.Fills) > 0 }
