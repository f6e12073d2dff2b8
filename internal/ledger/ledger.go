// Package ledger records realized executions per side and derives the
// per-trade profit views the display layer renders.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crossbot/internal/gateway"
)

// Outcome reports what Record did with an execution report.
type Outcome int

const (
	// Recorded means the fill was appended to one of the two sequences.
	Recorded Outcome = iota
	// Duplicate means the order id was already ingested; nothing changed.
	Duplicate
	// Ignored means the report was for another instrument or carried an
	// unrecognized side tag.
	Ignored
)

// Fill is one realized execution.
type Fill struct {
	OrderID int64
	Price   decimal.Decimal
	At      time.Time
}

// Ledger keeps two ordered fill sequences, buy side and sell side, plus
// the set of order ids already ingested. The feed redelivers execution
// reports on every re-query, so ingestion must be idempotent per order id.
//
// The event loop is the only writer; the display path reads concurrently,
// hence the mutex.
type Ledger struct {
	mu       sync.Mutex
	symbol   string
	buys     []Fill
	sells    []Fill
	recorded map[int64]struct{}
}

func New(symbol string) *Ledger {
	return &Ledger{
		symbol:   symbol,
		recorded: make(map[int64]struct{}),
	}
}

// SetSymbol retargets the ledger after an instrument reconfiguration.
// Existing fills stay; they belong to the session, not the symbol.
func (l *Ledger) SetSymbol(symbol string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.symbol = symbol
}

// Record ingests one execution report. A fill is appended to exactly one
// sequence, exactly once: duplicates and reports for other instruments or
// unknown side tags leave the ledger untouched.
func (l *Ledger) Record(orderID int64, symbol, sideTag string, price float64, at time.Time) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.recorded[orderID]; seen {
		return Duplicate
	}
	if symbol != l.symbol {
		return Ignored
	}

	fill := Fill{OrderID: orderID, Price: decimal.NewFromFloat(price), At: at}
	switch sideTag {
	case gateway.SideTagBought:
		l.buys = append(l.buys, fill)
	case gateway.SideTagSold:
		l.sells = append(l.sells, fill)
	default:
		return Ignored
	}
	l.recorded[orderID] = struct{}{}
	return Recorded
}

// Buys returns a copy of the buy-side fills in ingestion order.
func (l *Ledger) Buys() []Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyFills(l.buys)
}

// Sells returns a copy of the sell-side fills in ingestion order.
func (l *Ledger) Sells() []Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyFills(l.sells)
}

// Counts returns the number of buy and sell fills recorded.
func (l *Ledger) Counts() (buys, sells int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buys), len(l.sells)
}

// ProfitsByOrderID pairs buys with sells in order-id order and returns
// sell minus buy for each completed round trip. Order-id pairing survives
// asymmetric fill counts, unlike the positional view below.
func (l *Ledger) ProfitsByOrderID() []decimal.Decimal {
	l.mu.Lock()
	buys := copyFills(l.buys)
	sells := copyFills(l.sells)
	l.mu.Unlock()

	sort.Slice(buys, func(i, j int) bool { return buys[i].OrderID < buys[j].OrderID })
	sort.Slice(sells, func(i, j int) bool { return sells[i].OrderID < sells[j].OrderID })

	n := len(buys)
	if len(sells) < n {
		n = len(sells)
	}
	profits := make([]decimal.Decimal, 0, n)
	for i := 0; i < n; i++ {
		profits = append(profits, sells[i].Price.Sub(buys[i].Price))
	}
	return profits
}

// ProfitsByIndex reproduces the original client's positional pairing for
// its profit histogram: equal counts pair one to one; one extra buy drops
// the trailing buy (still open); one extra sell drops the leading sell
// (closing a position opened before the session).
func (l *Ledger) ProfitsByIndex() []decimal.Decimal {
	l.mu.Lock()
	buys := copyFills(l.buys)
	sells := copyFills(l.sells)
	l.mu.Unlock()

	switch {
	case len(buys) == 0 || len(sells) == 0:
		return nil
	case len(buys) > len(sells):
		buys = buys[:len(buys)-1]
	case len(buys) < len(sells):
		sells = sells[1:]
	}

	n := len(buys)
	if len(sells) < n {
		n = len(sells)
	}
	profits := make([]decimal.Decimal, 0, n)
	for i := 0; i < n; i++ {
		profits = append(profits, sells[i].Price.Sub(buys[i].Price))
	}
	return profits
}

func copyFills(fills []Fill) []Fill {
	out := make([]Fill, len(fills))
	copy(out, fills)
	return out
}
