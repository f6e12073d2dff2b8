// Package sim is an in-process trading gateway for development and
// tests. It answers the request surface with synthetic events: market
// orders fill instantly at the last tick price, position snapshots track
// its own book, and execution queries redeliver the full history the way
// the live feed does on re-query.
package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"crossbot/internal/gateway"
)

type restingOrder struct {
	instrument gateway.Instrument
	side       gateway.Side
	qty        int
}

type executionRecord struct {
	orderID    int64
	instrument gateway.Instrument
	sideTag    string
	price      float64
}

type bookPosition struct {
	qty     int
	avgCost float64
}

// Gateway implements gateway.RequestSender. Requests may arrive from any
// goroutine; the internal book is mutex-guarded and all events go out
// through the publisher, which owns delivery order.
type Gateway struct {
	mu  sync.Mutex
	pub gateway.Publisher
	log zerolog.Logger

	// AutoFill fills market orders on placement. When false orders rest
	// until Fill or CancelAllOrders, which exercises the not-filled and
	// cancellation paths.
	AutoFill bool

	connected  bool
	nextID     int64
	lastPrice  float64
	subscribed gateway.Instrument
	positions  map[string]bookPosition
	resting    map[int64]restingOrder
	executions []executionRecord
}

func New(pub gateway.Publisher, log zerolog.Logger) *Gateway {
	return &Gateway{
		pub:       pub,
		log:       log,
		AutoFill:  true,
		nextID:    1,
		positions: map[string]bookPosition{},
		resting:   map[int64]restingOrder{},
	}
}

func (g *Gateway) Connect(ctx context.Context) error {
	g.mu.Lock()
	g.connected = true
	id := g.nextID
	g.mu.Unlock()

	g.log.Info().Msg("sim gateway connected")
	// The session grants an initial order id on connect.
	g.pub.Publish(gateway.NextOrderIDEventOf(id))
	return nil
}

func (g *Gateway) Disconnect() error {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
	g.log.Info().Msg("sim gateway disconnected")
	return nil
}

func (g *Gateway) RequestMarketData(instrument gateway.Instrument) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return fmt.Errorf("not connected")
	}
	g.subscribed = instrument
	return nil
}

// PushTick feeds one last-price tick into the session.
func (g *Gateway) PushTick(price float64) {
	g.mu.Lock()
	g.lastPrice = price
	g.mu.Unlock()
	g.pub.Publish(gateway.TickEventOf(gateway.TickLast, price))
}

func (g *Gateway) RequestPositions() error {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	instrument := g.subscribed
	pos := g.positions[instrument.Symbol]
	g.mu.Unlock()

	g.pub.Publish(gateway.PositionEventOf(instrument, pos.qty, pos.avgCost))
	return nil
}

func (g *Gateway) RequestNextOrderID() error {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	id := g.nextID
	g.mu.Unlock()

	g.pub.Publish(gateway.NextOrderIDEventOf(id))
	return nil
}

// RequestExecutions redelivers every execution so far; deduplication is
// the consumer's problem, exactly as with the live feed.
func (g *Gateway) RequestExecutions(sinceReqID int64) error {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	history := make([]executionRecord, len(g.executions))
	copy(history, g.executions)
	g.mu.Unlock()

	for _, exec := range history {
		g.pub.Publish(gateway.ExecutionEventOf(exec.orderID, exec.instrument, exec.sideTag, exec.price))
	}
	return nil
}

func (g *Gateway) PlaceOrder(orderID int64, instrument gateway.Instrument, side gateway.Side, qty int) error {
	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return fmt.Errorf("not connected")
	}
	if qty <= 0 {
		g.mu.Unlock()
		return fmt.Errorf("invalid quantity: %d", qty)
	}
	if orderID >= g.nextID {
		g.nextID = orderID + 1
	}
	g.resting[orderID] = restingOrder{instrument: instrument, side: side, qty: qty}
	autoFill := g.AutoFill
	g.mu.Unlock()

	g.log.Info().Int64("order_id", orderID).Str("symbol", instrument.Symbol).
		Str("side", string(side)).Int("qty", qty).Msg("sim order placed")
	g.pub.Publish(gateway.OrderOpenedEventOf(orderID, instrument, side))

	if autoFill {
		return g.Fill(orderID)
	}
	return nil
}

// Fill executes a resting order at the last tick price.
func (g *Gateway) Fill(orderID int64) error {
	g.mu.Lock()
	order, ok := g.resting[orderID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("no resting order %d", orderID)
	}
	delete(g.resting, orderID)
	price := g.lastPrice

	sideTag := gateway.SideTagBought
	pos := g.positions[order.instrument.Symbol]
	if order.side == gateway.Sell {
		sideTag = gateway.SideTagSold
		pos.qty -= order.qty
		if pos.qty == 0 {
			pos.avgCost = 0
		}
	} else {
		total := pos.avgCost*float64(pos.qty) + price*float64(order.qty)
		pos.qty += order.qty
		if pos.qty != 0 {
			pos.avgCost = total / float64(pos.qty)
		}
	}
	g.positions[order.instrument.Symbol] = pos
	g.executions = append(g.executions, executionRecord{
		orderID:    orderID,
		instrument: order.instrument,
		sideTag:    sideTag,
		price:      price,
	})
	g.mu.Unlock()

	g.pub.Publish(gateway.OrderStatusEventOf(orderID, gateway.OrderStatusFilled, order.qty, 0))
	g.pub.Publish(gateway.ExecutionEventOf(orderID, order.instrument, sideTag, price))
	return nil
}

func (g *Gateway) CancelAllOrders() error {
	g.mu.Lock()
	cancelled := make(map[int64]restingOrder, len(g.resting))
	for id, order := range g.resting {
		cancelled[id] = order
	}
	g.resting = map[int64]restingOrder{}
	g.mu.Unlock()

	for id, order := range cancelled {
		g.log.Info().Int64("order_id", id).Msg("sim order cancelled")
		g.pub.Publish(gateway.OrderStatusEventOf(id, gateway.OrderStatusCancelled, 0, order.qty))
	}
	return nil
}

// Position reports the sim book's quantity for a symbol.
func (g *Gateway) Position(symbol string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions[symbol].qty
}
