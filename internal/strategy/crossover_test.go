package strategy

import (
	"testing"

	"crossbot/internal/series"
)

func historyOf(prices ...float64) *series.Series {
	s := series.New(0)
	for _, p := range prices {
		s.Append(series.Sample{Price: p})
	}
	return s
}

func TestCrossoverBuysWhenFlatAndShortAboveLong(t *testing.T) {
	c := Crossover{ShortWindow: 3, LongWindow: 10, Qty: 100}
	hist := historyOf(10, 10, 10, 10, 10, 10, 10, 10, 10, 16)

	intent, shortAvg, longAvg, ok := c.Evaluate(hist, false)
	if !ok {
		t.Fatalf("expected evaluation to run")
	}
	if intent.Action != Buy || intent.Qty != 100 {
		t.Fatalf("expected BUY qty=100, got %s qty=%d", intent.Action, intent.Qty)
	}
	if !(longAvg < shortAvg) {
		t.Fatalf("expected longAvg < shortAvg, got short=%.4f long=%.4f", shortAvg, longAvg)
	}
	if shortAvg != 12 || longAvg != 10.6 {
		t.Fatalf("expected short=12 long=10.6, got short=%.4f long=%.4f", shortAvg, longAvg)
	}
}

func TestCrossoverSellsWhenLongAndLongAboveShort(t *testing.T) {
	c := Crossover{ShortWindow: 3, LongWindow: 10, Qty: 100}
	// shortAvg 9.33 under longAvg 9.8: the sell condition while long.
	hist := historyOf(10, 10, 10, 10, 10, 10, 10, 10, 10, 8)

	intent, shortAvg, longAvg, ok := c.Evaluate(hist, true)
	if !ok {
		t.Fatalf("expected evaluation to run")
	}
	if intent.Action != Sell || intent.Qty != 100 {
		t.Fatalf("expected SELL qty=100, got %s qty=%d", intent.Action, intent.Qty)
	}
	if longAvg != 9.8 || !(shortAvg < longAvg) {
		t.Fatalf("expected short=9.33 long=9.8, got short=%.4f long=%.4f", shortAvg, longAvg)
	}
}

func TestCrossoverHoldsAgainstPosition(t *testing.T) {
	c := Crossover{ShortWindow: 3, LongWindow: 10, Qty: 100}

	down := historyOf(10, 10, 10, 10, 10, 10, 10, 10, 10, 8)
	if intent, _, _, _ := c.Evaluate(down, false); intent.Action != Hold {
		t.Fatalf("flat in a downtrend must hold, got %s", intent.Action)
	}

	up := historyOf(10, 10, 10, 10, 10, 10, 10, 10, 10, 16)
	if intent, _, _, _ := c.Evaluate(up, true); intent.Action != Hold {
		t.Fatalf("long in an uptrend must hold, got %s", intent.Action)
	}
}

func TestExactTieIsHoldForBothPositions(t *testing.T) {
	c := Crossover{ShortWindow: 3, LongWindow: 10, Qty: 100}
	hist := historyOf(10, 10, 10, 10, 10, 10, 10, 10, 10, 10)

	for _, isLong := range []bool{false, true} {
		intent, shortAvg, longAvg, ok := c.Evaluate(hist, isLong)
		if !ok {
			t.Fatalf("expected evaluation to run")
		}
		if shortAvg != longAvg {
			t.Fatalf("expected a tie, got short=%.4f long=%.4f", shortAvg, longAvg)
		}
		if intent.Action != Hold {
			t.Fatalf("tie must hold (isLong=%v), got %s", isLong, intent.Action)
		}
	}
}

func TestEvaluateRequiresLongWindowOfHistory(t *testing.T) {
	c := Crossover{ShortWindow: 3, LongWindow: 10, Qty: 100}
	hist := historyOf(10, 10, 10, 10, 10, 10, 10, 10, 10)

	if _, _, _, ok := c.Evaluate(hist, false); ok {
		t.Fatalf("expected evaluation to be skipped below long window")
	}
}

func TestDecideDirections(t *testing.T) {
	if got := Decide(10.2, 9.8, false); got != Buy {
		t.Fatalf("flat with short above long must buy, got %s", got)
	}
	if got := Decide(9.33, 9.8, true); got != Sell {
		t.Fatalf("long with long above short must sell, got %s", got)
	}
	if got := Decide(9.33, 9.8, false); got != Hold {
		t.Fatalf("flat with long above short must hold, got %s", got)
	}
	if got := Decide(10.2, 9.8, true); got != Hold {
		t.Fatalf("long with short above long must hold, got %s", got)
	}
}
