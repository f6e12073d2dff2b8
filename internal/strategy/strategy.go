// Package strategy evaluates the moving-average crossover signal. The
// evaluator is pure: no side effects, no state beyond its configuration.
package strategy

type Action string

const (
	Hold Action = "HOLD"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

type TradeIntent struct {
	Action Action
	Qty    int
	Reason string
}
