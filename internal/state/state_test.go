package state

import (
	"testing"

	"crossbot/internal/series"
)

func TestPublishReplacesSnapshot(t *testing.T) {
	s := NewStore()

	s.Publish(Snapshot{LastPrice: 100, GateOpen: true})
	s.Publish(Snapshot{LastPrice: 101, GateOpen: false, IsLong: true})

	got := s.Snapshot()
	if got.LastPrice != 101 || got.GateOpen || !got.IsLong {
		t.Fatalf("expected latest snapshot, got %+v", got)
	}
}

func TestSamplesReturnsIndependentCopy(t *testing.T) {
	s := NewStore()
	s.AppendSample(series.Sample{Price: 100})
	s.AppendSample(series.Sample{Price: 101})

	copied := s.Samples()
	if len(copied) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(copied))
	}
	copied[0].Price = 0

	again := s.Samples()
	if again[0].Price != 100 {
		t.Fatalf("mutating a returned copy must not touch the store, got %v", again)
	}
}
