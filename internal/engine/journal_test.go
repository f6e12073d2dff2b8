package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crossbot/internal/strategy"
)

func TestJournalWritesOneJSONObjectPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.ndjson")
	j, err := NewJournal(path, "run-abc")
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	j.Append(Entry{
		Time:     time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC),
		Symbol:   "AAPL",
		Price:    101.5,
		ShortAvg: 12,
		LongAvg:  10.6,
		GateOpen: true,
		Action:   strategy.Buy,
		Qty:      100,
		OrderID:  3,
		Result:   "order_submitted",
	})
	j.Append(Entry{
		Time:   time.Date(2024, 6, 3, 14, 30, 1, 0, time.UTC),
		Symbol: "AAPL",
		Price:  101.6,
		Result: "gate_closed",
	})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first Entry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if first.RunID != "run-abc" {
		t.Fatalf("expected run id stamped on every entry, got %q", first.RunID)
	}
	if first.Action != strategy.Buy || first.OrderID != 3 {
		t.Fatalf("expected submitted order fields, got %+v", first)
	}

	var second Entry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if second.Result != "gate_closed" {
		t.Fatalf("expected gate_closed result, got %q", second.Result)
	}
	// Zero-valued order fields stay off the line entirely.
	if strings.Contains(lines[1], "order_id") || strings.Contains(lines[1], "action") {
		t.Fatalf("expected omitempty order fields, got %s", lines[1])
	}
}

func TestJournalAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.ndjson")

	for _, runID := range []string{"run-1", "run-2"} {
		j, err := NewJournal(path, runID)
		if err != nil {
			t.Fatalf("NewJournal: %v", err)
		}
		j.Append(Entry{Symbol: "AAPL", Result: "hold"})
		if err := j.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected both runs retained, got %d lines", len(lines))
	}
	if !strings.Contains(lines[0], "run-1") || !strings.Contains(lines[1], "run-2") {
		t.Fatalf("expected per-run ids in order, got %v", lines)
	}
}

func TestNilJournalIsInert(t *testing.T) {
	var j *Journal
	j.Append(Entry{Symbol: "AAPL", Result: "hold"})
	if got := j.RunID(); got != "" {
		t.Fatalf("expected empty run id on nil journal, got %q", got)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("nil journal Close must be a no-op, got %v", err)
	}
}
