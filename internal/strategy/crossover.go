package strategy

import "crossbot/internal/series"

// Crossover bundles the two window lengths and the fixed order quantity.
// Windows are boundary-validated positive integers and may be changed
// between evaluations; changes affect only future decisions.
type Crossover struct {
	ShortWindow int
	LongWindow  int
	Qty         int
}

// Decide applies the crossover rule to precomputed averages. An exact tie
// is Hold regardless of position; the rule fires only on strict
// inequality.
func Decide(shortAvg, longAvg float64, isLong bool) Action {
	if longAvg == shortAvg {
		return Hold
	}
	if isLong && longAvg > shortAvg {
		return Sell
	}
	if !isLong && longAvg < shortAvg {
		return Buy
	}
	return Hold
}

// Evaluate computes the trailing means over hist and decides. ok is false
// when the history is shorter than the long window, in which case the
// evaluator must not run and no intent is produced.
func (c Crossover) Evaluate(hist *series.Series, isLong bool) (intent TradeIntent, shortAvg, longAvg float64, ok bool) {
	longAvg, ok = hist.TailMean(c.LongWindow)
	if !ok {
		return TradeIntent{}, 0, 0, false
	}
	shortAvg, ok = hist.TailMean(c.ShortWindow)
	if !ok {
		return TradeIntent{}, 0, 0, false
	}

	switch Decide(shortAvg, longAvg, isLong) {
	case Sell:
		return TradeIntent{Action: Sell, Qty: c.Qty, Reason: "long_avg_above_short_avg"}, shortAvg, longAvg, true
	case Buy:
		return TradeIntent{Action: Buy, Qty: c.Qty, Reason: "long_avg_below_short_avg"}, shortAvg, longAvg, true
	default:
		return TradeIntent{Action: Hold, Reason: "no_crossover"}, shortAvg, longAvg, true
	}
}
