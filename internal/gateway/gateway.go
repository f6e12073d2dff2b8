// Package gateway defines the two capability surfaces between the trading
// core and the brokerage session: the inbound event callbacks the core
// consumes and the outbound requests it drives. Concrete sessions live in
// the sim and alpaca subpackages.
package gateway

import "context"

// TickKind identifies the meaning of a price tick. The numeric values
// follow the brokerage feed's tick type codes.
type TickKind int

// TickLast is the only tick kind the core acts on: the last trade price.
const TickLast TickKind = 68

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Execution side tags as they appear on the wire.
const (
	SideTagBought = "BOT"
	SideTagSold   = "SLD"
)

// Instrument identifies the tradable contract.
type Instrument struct {
	Symbol   string
	SecType  string
	Exchange string
	Currency string
}

// EventConsumer is the inbound callback surface. All methods are invoked
// from a single goroutine in strict arrival order; implementations hold no
// locks and must not block.
type EventConsumer interface {
	OnTick(kind TickKind, price float64)
	OnPositionSnapshot(instrument Instrument, qty int, avgCost float64)
	OnNextOrderID(id int64)
	OnOrderStatus(orderID int64, status string, filled, remaining int)
	OnOrderOpened(orderID int64, instrument Instrument, side Side)
	OnExecution(orderID int64, instrument Instrument, sideTag string, fillPrice float64)
	OnError(reqID int64, code int, msg string)
}

// RequestSender is the outbound request surface. Requests are
// fire-and-forget: the returned error covers only local submission
// failures, never order outcomes, which arrive later as events.
type RequestSender interface {
	Connect(ctx context.Context) error
	Disconnect() error
	RequestMarketData(instrument Instrument) error
	RequestPositions() error
	RequestNextOrderID() error
	RequestExecutions(sinceReqID int64) error
	PlaceOrder(orderID int64, instrument Instrument, side Side, qty int) error
	CancelAllOrders() error
}

// OrderStatusFilled is the one status string that resolves an order as
// done; everything else leaves it open.
const OrderStatusFilled = "Filled"

// OrderStatusCancelled is emitted when an order is cancelled before
// filling.
const OrderStatusCancelled = "Cancelled"
