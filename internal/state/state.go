// Package state publishes read-only snapshots of the coordinator's view
// for the display layer. The coordinator writes after each processed
// event; display readers poll at their own cadence and never reach into
// the core's internals.
package state

import (
	"sync"

	"crossbot/internal/gateway"
	"crossbot/internal/series"
)

// OrderView is the display projection of the tracked order intent.
type OrderView struct {
	ID         int64
	Side       gateway.Side
	StatusText string // "", "Not Filled" or "Filled"
}

// Snapshot is one published view of trading state. Copied on read; safe
// to hold across frames.
type Snapshot struct {
	Instrument  gateway.Instrument
	IsLong      bool
	GateOpen    bool
	Order       OrderView
	LastPrice   float64
	SampleCount int
	ShortAvg    float64
	LongAvg     float64
	AvgsValid   bool
	BuyFills    int
	SellFills   int
}

type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	samples  []series.Sample
}

func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current snapshot.
func (s *Store) Publish(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
}

// Snapshot returns the most recently published view.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// AppendSample mirrors a price sample for plotting reads.
func (s *Store) AppendSample(sample series.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample)
}

// Samples returns a copy of the mirrored price history.
func (s *Store) Samples() []series.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]series.Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
