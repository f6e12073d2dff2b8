// Package engine holds the trading state coordinator: the single owner of
// all mutable trading state. It consumes the gateway's serialized event
// stream, runs the crossover signal once per qualifying tick, and gates
// order submission on the reconciled view of position, in-flight order,
// and recorded executions.
package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"crossbot/internal/config"
	"crossbot/internal/gateway"
	"crossbot/internal/ledger"
	"crossbot/internal/metrics"
	"crossbot/internal/series"
	"crossbot/internal/state"
	"crossbot/internal/strategy"
)

// orderIntent tracks the most recently submitted order. The coordinator
// is single-order-in-flight: exactly one intent exists at a time and a
// new order may be submitted only once it resolves.
type orderIntent struct {
	id         int64
	side       gateway.Side
	statusText string
	filled     bool
}

// Coordinator implements gateway.EventConsumer. It holds no locks: the
// host delivers events from exactly one goroutine (gateway.Dispatcher)
// and all mutation happens inside that delivery.
type Coordinator struct {
	instrument gateway.Instrument
	signal     strategy.Crossover
	sender     gateway.RequestSender
	store      *state.Store
	ledger     *ledger.Ledger
	journal    *Journal
	log        zerolog.Logger

	hist   *series.Series
	start  time.Time
	isLong bool

	gateOpen      bool
	intent        orderIntent
	hasIntent     bool
	cancelPending bool

	nextOrderID int64
	idGranted   bool
	lastUsedID  int64

	execReqID int64

	clock func() time.Time
}

func New(cfg config.Config, sender gateway.RequestSender, store *state.Store, ldgr *ledger.Ledger, journal *Journal, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		instrument: cfg.Instrument(),
		signal: strategy.Crossover{
			ShortWindow: cfg.ShortWindow,
			LongWindow:  cfg.LongWindow,
			Qty:         cfg.Quantity,
		},
		sender:   sender,
		store:    store,
		ledger:   ldgr,
		journal:  journal,
		log:      log,
		hist:     series.New(cfg.MaxSamples),
		gateOpen: true,
		clock:    func() time.Time { return time.Now().UTC() },
	}
	c.start = c.clock()
	c.publish()
	return c
}

// OnTick is the dispatch loop's hot path: append the sample, fire the
// auxiliary refresh requests, evaluate, then re-query executions. The
// refreshes are fire-and-forget; the decision runs on the most recently
// reconciled state, one tick stale in the worst case.
func (c *Coordinator) OnTick(kind gateway.TickKind, price float64) {
	if kind != gateway.TickLast {
		return
	}
	now := c.clock()
	sample := series.Sample{Elapsed: now.Sub(c.start), Price: price}
	c.hist.Append(sample)
	c.store.AppendSample(sample)
	metrics.TicksTotal.WithLabelValues(c.instrument.Symbol).Inc()

	c.request("positions", c.sender.RequestPositions())
	c.request("next_order_id", c.sender.RequestNextOrderID())

	c.evaluate(now, price)

	reqID := c.execReqID
	c.execReqID++
	c.request("executions", c.sender.RequestExecutions(reqID))

	c.publish()
}

func (c *Coordinator) evaluate(now time.Time, price float64) {
	entry := Entry{
		Time:     now,
		Symbol:   c.instrument.Symbol,
		Price:    price,
		IsLong:   c.isLong,
		GateOpen: c.gateOpen,
	}

	if c.hist.Len() < c.signal.LongWindow {
		entry.Result = "warming_up"
		c.journal.Append(entry)
		return
	}
	if !c.gateOpen {
		entry.Result = "gate_closed"
		c.journal.Append(entry)
		return
	}

	intent, shortAvg, longAvg, ok := c.signal.Evaluate(c.hist, c.isLong)
	if !ok {
		entry.Result = "warming_up"
		c.journal.Append(entry)
		return
	}
	entry.ShortAvg = shortAvg
	entry.LongAvg = longAvg
	entry.Action = intent.Action
	entry.Qty = intent.Qty

	if intent.Action == strategy.Hold {
		entry.Result = "hold"
		c.journal.Append(entry)
		return
	}

	if !c.idGranted {
		// The grant was consumed by the previous order and the refresh
		// has not landed yet. Skip; the next tick decides with a fresh id.
		entry.Result = "no_order_id"
		c.journal.Append(entry)
		c.log.Debug().Str("action", string(intent.Action)).Msg("no unconsumed order id, skipping submission")
		return
	}

	side := gateway.Buy
	if intent.Action == strategy.Sell {
		side = gateway.Sell
	}
	orderID := c.nextOrderID
	c.idGranted = false
	priorUsedID := c.lastUsedID
	c.lastUsedID = orderID

	// Record the intent and close the gate before the request goes out:
	// a synchronous session may deliver the status event for this id
	// before PlaceOrder returns.
	prior := c.intent
	priorHasIntent := c.hasIntent
	c.intent = orderIntent{id: orderID, side: side, statusText: "Submitted"}
	c.hasIntent = true
	c.gateOpen = false
	c.cancelPending = false

	if err := c.sender.PlaceOrder(orderID, c.instrument, side, intent.Qty); err != nil {
		c.intent = prior
		c.hasIntent = priorHasIntent
		c.gateOpen = true
		// The session never saw this id; its next grant may redeliver it
		// and must not be treated as stale.
		c.lastUsedID = priorUsedID
		entry.Result = "order_failed"
		entry.OrderID = orderID
		c.journal.Append(entry)
		c.log.Error().Err(err).Int64("order_id", orderID).Str("side", string(side)).Msg("place order failed")
		return
	}
	metrics.OrdersTotal.WithLabelValues(c.instrument.Symbol, string(side)).Inc()

	entry.Result = "order_submitted"
	entry.OrderID = orderID
	c.journal.Append(entry)
	c.log.Info().Int64("order_id", orderID).Str("side", string(side)).Int("qty", intent.Qty).
		Float64("short_avg", shortAvg).Float64("long_avg", longAvg).Msg("order submitted")
}

// OnPositionSnapshot overwrites the long flag from the latest poll.
// Snapshots for other instruments on the account are broadcast too and
// are ignored.
func (c *Coordinator) OnPositionSnapshot(instrument gateway.Instrument, qty int, avgCost float64) {
	if instrument.Symbol != c.instrument.Symbol {
		return
	}
	c.isLong = qty > 0
	c.log.Debug().Str("symbol", instrument.Symbol).Int("qty", qty).Float64("avg_cost", avgCost).
		Bool("is_long", c.isLong).Msg("position snapshot")
	c.publish()
}

// OnNextOrderID stores the freshest id grant. Each grant is consumed by
// at most one submission; a consumed grant is never reused. The refresh
// issued on the submitting tick is answered after placement, so a grant
// can arrive carrying the id that submission already consumed. Grants
// are monotonic: anything at or below the last consumed id is stale and
// must not re-arm submission.
func (c *Coordinator) OnNextOrderID(id int64) {
	if id <= c.lastUsedID {
		c.log.Debug().Int64("order_id", id).Msg("stale order id grant ignored")
		return
	}
	c.nextOrderID = id
	c.idGranted = true
}

// OnOrderStatus reconciles the tracked intent. Only the exact status
// "Filled" resolves it and reopens the gate; every other status keeps
// the gate closed, unless a cancel is pending, in which case any
// non-Filled status acknowledges the cancellation and reopens the gate.
// Repeated deliveries of the same status are idempotent.
func (c *Coordinator) OnOrderStatus(orderID int64, status string, filled, remaining int) {
	if !c.hasIntent || orderID != c.intent.id {
		c.log.Debug().Int64("order_id", orderID).Str("status", status).Msg("status for untracked order")
		return
	}

	switch {
	case status == gateway.OrderStatusFilled:
		c.intent.statusText = "Filled"
		c.intent.filled = true
		c.gateOpen = true
		c.cancelPending = false
	case c.cancelPending:
		c.intent.statusText = "Not Filled"
		c.gateOpen = true
		c.cancelPending = false
		c.log.Info().Int64("order_id", orderID).Str("status", status).Msg("cancel acknowledged, gate reopened")
	default:
		c.intent.statusText = "Not Filled"
		c.gateOpen = false
	}

	c.log.Info().Int64("order_id", orderID).Str("status", status).Int("filled", filled).
		Int("remaining", remaining).Bool("gate_open", c.gateOpen).Msg("order status")
	c.publish()
}

// OnOrderOpened records the side of the tracked order for display.
func (c *Coordinator) OnOrderOpened(orderID int64, instrument gateway.Instrument, side gateway.Side) {
	if !c.hasIntent || orderID != c.intent.id {
		return
	}
	c.intent.side = side
	c.log.Debug().Int64("order_id", orderID).Str("symbol", instrument.Symbol).
		Str("side", string(side)).Msg("order opened")
	c.publish()
}

// OnExecution hands the report to the ledger, which absorbs redelivered
// duplicates and reports for other instruments.
func (c *Coordinator) OnExecution(orderID int64, instrument gateway.Instrument, sideTag string, fillPrice float64) {
	switch c.ledger.Record(orderID, instrument.Symbol, sideTag, fillPrice, c.clock()) {
	case ledger.Recorded:
		metrics.ExecutionsTotal.WithLabelValues(instrument.Symbol, sideLabel(sideTag)).Inc()
		c.log.Info().Int64("order_id", orderID).Str("symbol", instrument.Symbol).
			Str("side", sideTag).Float64("price", fillPrice).Msg("execution recorded")
	case ledger.Duplicate:
		metrics.DuplicateExecutionsTotal.Inc()
	case ledger.Ignored:
		c.log.Debug().Int64("order_id", orderID).Str("symbol", instrument.Symbol).
			Str("side", sideTag).Msg("execution ignored")
	}
	c.publish()
}

// OnError is advisory: the feed reports connection notices and request
// errors here. Logged, never mutates trading state.
func (c *Coordinator) OnError(reqID int64, code int, msg string) {
	c.log.Warn().Int64("req_id", reqID).Int("code", code).Str("msg", msg).Msg("gateway error")
}

// CancelAll forwards a global cancel and marks the open intent so the
// next status event for it resolves the intent instead of keeping the
// gate closed forever.
func (c *Coordinator) CancelAll() error {
	// Mark the pending cancel before the request goes out: a synchronous
	// session may deliver the cancellation status before CancelAllOrders
	// returns.
	if c.hasIntent && !c.intent.filled && !c.gateOpen {
		c.cancelPending = true
	}
	if err := c.sender.CancelAllOrders(); err != nil {
		c.cancelPending = false
		return fmt.Errorf("cancel all orders: %w", err)
	}
	return nil
}

// SetInstrument reconfigures the tracked contract. Rejected while an
// order is in flight: switching symbols mid-order would orphan the
// intent.
func (c *Coordinator) SetInstrument(instrument gateway.Instrument) error {
	if !c.gateOpen {
		return fmt.Errorf("order %d in flight, instrument change rejected", c.intent.id)
	}
	c.instrument = instrument
	c.ledger.SetSymbol(instrument.Symbol)
	c.publish()
	return nil
}

// SetWindows changes the signal windows for future evaluations. Inputs
// are validated at the configuration boundary.
func (c *Coordinator) SetWindows(short, long int) {
	c.signal.ShortWindow = short
	c.signal.LongWindow = long
}

func (c *Coordinator) publish() {
	snapshot := state.Snapshot{
		Instrument:  c.instrument,
		IsLong:      c.isLong,
		GateOpen:    c.gateOpen,
		SampleCount: c.hist.Len(),
	}
	if c.hasIntent {
		snapshot.Order = state.OrderView{
			ID:         c.intent.id,
			Side:       c.intent.side,
			StatusText: c.intent.statusText,
		}
	}
	if last, ok := c.hist.Last(); ok {
		snapshot.LastPrice = last.Price
	}
	if longAvg, ok := c.hist.TailMean(c.signal.LongWindow); ok {
		if shortAvg, ok := c.hist.TailMean(c.signal.ShortWindow); ok {
			snapshot.ShortAvg = shortAvg
			snapshot.LongAvg = longAvg
			snapshot.AvgsValid = true
		}
	}
	snapshot.BuyFills, snapshot.SellFills = c.ledger.Counts()
	c.store.Publish(snapshot)

	if c.gateOpen {
		metrics.GateOpen.Set(1)
	} else {
		metrics.GateOpen.Set(0)
	}
}

func (c *Coordinator) request(name string, err error) {
	if err != nil {
		c.log.Warn().Err(err).Str("request", name).Msg("gateway request failed")
	}
}

func sideLabel(sideTag string) string {
	if sideTag == gateway.SideTagBought {
		return string(gateway.Buy)
	}
	return string(gateway.Sell)
}
