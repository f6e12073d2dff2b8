package gateway

import (
	"context"

	"github.com/rs/zerolog"
)

// Event is one inbound callback captured for serialized delivery.
type Event interface {
	Deliver(c EventConsumer)
}

type tickEvent struct {
	kind  TickKind
	price float64
}

func (e tickEvent) Deliver(c EventConsumer) { c.OnTick(e.kind, e.price) }

type positionEvent struct {
	instrument Instrument
	qty        int
	avgCost    float64
}

func (e positionEvent) Deliver(c EventConsumer) {
	c.OnPositionSnapshot(e.instrument, e.qty, e.avgCost)
}

type nextOrderIDEvent struct {
	id int64
}

func (e nextOrderIDEvent) Deliver(c EventConsumer) { c.OnNextOrderID(e.id) }

type orderStatusEvent struct {
	orderID           int64
	status            string
	filled, remaining int
}

func (e orderStatusEvent) Deliver(c EventConsumer) {
	c.OnOrderStatus(e.orderID, e.status, e.filled, e.remaining)
}

type orderOpenedEvent struct {
	orderID    int64
	instrument Instrument
	side       Side
}

func (e orderOpenedEvent) Deliver(c EventConsumer) {
	c.OnOrderOpened(e.orderID, e.instrument, e.side)
}

type executionEvent struct {
	orderID    int64
	instrument Instrument
	sideTag    string
	fillPrice  float64
}

func (e executionEvent) Deliver(c EventConsumer) {
	c.OnExecution(e.orderID, e.instrument, e.sideTag, e.fillPrice)
}

type errorEvent struct {
	reqID int64
	code  int
	msg   string
}

func (e errorEvent) Deliver(c EventConsumer) { c.OnError(e.reqID, e.code, e.msg) }

// Constructors for sessions that produce events.

func TickEventOf(kind TickKind, price float64) Event { return tickEvent{kind, price} }

func PositionEventOf(instrument Instrument, qty int, avgCost float64) Event {
	return positionEvent{instrument, qty, avgCost}
}

func NextOrderIDEventOf(id int64) Event { return nextOrderIDEvent{id} }

func OrderStatusEventOf(orderID int64, status string, filled, remaining int) Event {
	return orderStatusEvent{orderID, status, filled, remaining}
}

func OrderOpenedEventOf(orderID int64, instrument Instrument, side Side) Event {
	return orderOpenedEvent{orderID, instrument, side}
}

func ExecutionEventOf(orderID int64, instrument Instrument, sideTag string, fillPrice float64) Event {
	return executionEvent{orderID, instrument, sideTag, fillPrice}
}

func ErrorEventOf(reqID int64, code int, msg string) Event { return errorEvent{reqID, code, msg} }

type commandEvent struct {
	fn func()
}

func (e commandEvent) Deliver(EventConsumer) { e.fn() }

// CommandEventOf wraps a host control request (cancel-all, window or
// instrument change) so it runs on the consumer goroutine, serialized
// with event processing, instead of racing it.
func CommandEventOf(fn func()) Event { return commandEvent{fn: fn} }

// Publisher accepts events for later delivery to the consumer. Sessions
// publish through this so hosts can choose their delivery discipline.
type Publisher interface {
	Publish(Event)
}

// Dispatcher serializes event delivery onto a single consumer goroutine.
// Sessions may publish from any goroutine; the consumer sees events in
// publish order and never concurrently. This is the external
// synchronization the lock-free core requires of its host.
type Dispatcher struct {
	events  chan Event
	stopped chan struct{}
	log     zerolog.Logger
}

func NewDispatcher(buffer int, log zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		events:  make(chan Event, buffer),
		stopped: make(chan struct{}),
		log:     log,
	}
}

// Publish enqueues an event for delivery. A full queue blocks until the
// consumer drains it; backpressure on the session is preferable to a gap
// in the event log. Once the dispatcher has stopped, events that cannot
// be buffered are dropped rather than blocking a session goroutine
// forever.
func (d *Dispatcher) Publish(e Event) {
	select {
	case d.events <- e:
		return
	default:
	}
	d.log.Warn().Msg("event queue full, backpressuring session")
	select {
	case d.events <- e:
	case <-d.stopped:
		d.log.Debug().Msg("event dropped after dispatcher stop")
	}
}

// Run drains the queue into the consumer until ctx is cancelled. Run
// must be called at most once.
func (d *Dispatcher) Run(ctx context.Context, consumer EventConsumer) {
	defer close(d.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-d.events:
			e.Deliver(consumer)
		}
	}
}
