// Package alpaca maps the gateway capability surfaces onto the Alpaca
// trading API: REST for orders and positions, the stocks stream for
// last-trade ticks, and a poll loop that turns order resolution into
// status and execution events.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"crossbot/internal/gateway"
)

// errCodeOrderPoll tags advisory OnError events raised when an order
// poll fails; the poll retries on the next tick of the loop.
const errCodeOrderPoll = 1100

type Config struct {
	APIKey       string
	APISecret    string
	BaseURL      string
	Feed         string
	PollInterval time.Duration
}

type trackedOrder struct {
	brokerID   string
	instrument gateway.Instrument
	side       gateway.Side
	lastStatus string
	terminal   bool
}

type executionRecord struct {
	orderID    int64
	instrument gateway.Instrument
	sideTag    string
	price      float64
}

// Gateway implements gateway.RequestSender against the brokerage. The
// brokerage has no order-id grant round trip, so ids are granted locally
// and folded into the client order id.
type Gateway struct {
	cfg    Config
	pub    gateway.Publisher
	log    zerolog.Logger
	client *alpaca.Client

	mu         sync.Mutex
	nextID     int64
	orders     map[int64]*trackedOrder
	executions []executionRecord
	instrument gateway.Instrument

	runCtx context.Context
	cancel context.CancelFunc
}

func New(cfg Config, pub gateway.Publisher, log zerolog.Logger) *Gateway {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		pub:    pub,
		log:    log,
		nextID: 1,
		orders: map[int64]*trackedOrder{},
	}
}

func (g *Gateway) Connect(ctx context.Context) error {
	g.client = alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    g.cfg.APIKey,
		APISecret: g.cfg.APISecret,
		BaseURL:   g.cfg.BaseURL,
	})
	if _, err := g.client.GetAccount(); err != nil {
		return fmt.Errorf("connect brokerage: %w", err)
	}

	g.runCtx, g.cancel = context.WithCancel(ctx)
	go g.pollLoop(g.runCtx)

	g.mu.Lock()
	id := g.nextID
	g.mu.Unlock()
	g.pub.Publish(gateway.NextOrderIDEventOf(id))

	g.log.Info().Str("base_url", g.cfg.BaseURL).Msg("brokerage gateway connected")
	return nil
}

func (g *Gateway) Disconnect() error {
	if g.cancel != nil {
		g.cancel()
	}
	g.log.Info().Msg("brokerage gateway disconnected")
	return nil
}

// RequestMarketData subscribes to last-trade ticks for the instrument.
func (g *Gateway) RequestMarketData(instrument gateway.Instrument) error {
	g.mu.Lock()
	g.instrument = instrument
	g.mu.Unlock()
	return g.startTradeStream(g.runCtx, instrument.Symbol)
}

func (g *Gateway) RequestPositions() error {
	g.mu.Lock()
	instrument := g.instrument
	g.mu.Unlock()

	pos, err := g.client.GetPosition(instrument.Symbol)
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
			// No position on the books means flat, not an error.
			g.pub.Publish(gateway.PositionEventOf(instrument, 0, 0))
			return nil
		}
		return fmt.Errorf("fetch position: %w", err)
	}

	qty := int(pos.Qty.IntPart())
	avgCost, _ := pos.AvgEntryPrice.Float64()
	g.pub.Publish(gateway.PositionEventOf(instrument, qty, avgCost))
	return nil
}

func (g *Gateway) RequestNextOrderID() error {
	g.mu.Lock()
	id := g.nextID
	g.mu.Unlock()
	g.pub.Publish(gateway.NextOrderIDEventOf(id))
	return nil
}

// RequestExecutions redelivers every execution observed this session.
func (g *Gateway) RequestExecutions(sinceReqID int64) error {
	g.mu.Lock()
	history := make([]executionRecord, len(g.executions))
	copy(history, g.executions)
	g.mu.Unlock()

	for _, exec := range history {
		g.pub.Publish(gateway.ExecutionEventOf(exec.orderID, exec.instrument, exec.sideTag, exec.price))
	}
	return nil
}

func (g *Gateway) PlaceOrder(orderID int64, instrument gateway.Instrument, side gateway.Side, qty int) error {
	orderSide := alpaca.Buy
	if side == gateway.Sell {
		orderSide = alpaca.Sell
	}
	orderQty := decimal.NewFromInt(int64(qty))

	order, err := g.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        instrument.Symbol,
		Qty:           &orderQty,
		Side:          orderSide,
		Type:          alpaca.Market,
		TimeInForce:   alpaca.Day,
		ClientOrderID: fmt.Sprintf("crossbot-%d", orderID),
	})
	if err != nil {
		g.log.Error().Err(err).Str("symbol", instrument.Symbol).Str("side", string(side)).
			Int("qty", qty).Msg("place order failed")
		return err
	}

	g.mu.Lock()
	if orderID >= g.nextID {
		g.nextID = orderID + 1
	}
	g.orders[orderID] = &trackedOrder{
		brokerID:   order.ID,
		instrument: instrument,
		side:       side,
	}
	g.mu.Unlock()

	g.log.Info().Int64("order_id", orderID).Str("broker_order_id", order.ID).
		Str("side", string(side)).Int("qty", qty).Msg("order placed")
	g.pub.Publish(gateway.OrderOpenedEventOf(orderID, instrument, side))
	return nil
}

func (g *Gateway) CancelAllOrders() error {
	if err := g.client.CancelAllOrders(); err != nil {
		return fmt.Errorf("cancel all orders: %w", err)
	}
	g.log.Info().Msg("cancel all orders requested")
	return nil
}

// pollLoop resolves in-flight orders into status and execution events
// at the configured reconcile cadence.
func (g *Gateway) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.pollOnce()
		}
	}
}

func (g *Gateway) pollOnce() {
	g.mu.Lock()
	pending := make(map[int64]*trackedOrder, len(g.orders))
	for id, order := range g.orders {
		if !order.terminal {
			pending[id] = order
		}
	}
	g.mu.Unlock()

	for id, tracked := range pending {
		order, err := g.client.GetOrder(tracked.brokerID)
		if err != nil {
			g.log.Warn().Err(err).Int64("order_id", id).Msg("poll order failed")
			g.pub.Publish(gateway.ErrorEventOf(id, errCodeOrderPoll, err.Error()))
			continue
		}
		g.applyOrderUpdate(id, tracked, order)
	}
}

func (g *Gateway) applyOrderUpdate(id int64, tracked *trackedOrder, order *alpaca.Order) {
	status := mapStatus(string(order.Status))
	filled := int(order.FilledQty.IntPart())
	remaining := 0
	if order.Qty != nil {
		remaining = int(order.Qty.IntPart()) - filled
	}

	g.mu.Lock()
	changed := tracked.lastStatus != status
	tracked.lastStatus = status
	terminal := status == gateway.OrderStatusFilled || status == gateway.OrderStatusCancelled
	tracked.terminal = terminal

	var exec *executionRecord
	if status == gateway.OrderStatusFilled && order.FilledAvgPrice != nil {
		price, _ := order.FilledAvgPrice.Float64()
		sideTag := gateway.SideTagBought
		if tracked.side == gateway.Sell {
			sideTag = gateway.SideTagSold
		}
		record := executionRecord{
			orderID:    id,
			instrument: tracked.instrument,
			sideTag:    sideTag,
			price:      price,
		}
		g.executions = append(g.executions, record)
		exec = &record
	}
	g.mu.Unlock()

	if changed {
		g.pub.Publish(gateway.OrderStatusEventOf(id, status, filled, remaining))
	}
	if exec != nil {
		g.pub.Publish(gateway.ExecutionEventOf(exec.orderID, exec.instrument, exec.sideTag, exec.price))
	}
}

// mapStatus collapses the brokerage's order states onto the status
// vocabulary the core gates on.
func mapStatus(status string) string {
	switch status {
	case "filled":
		return gateway.OrderStatusFilled
	case "canceled", "expired", "rejected", "done_for_day", "stopped":
		return gateway.OrderStatusCancelled
	default:
		return "Submitted"
	}
}
