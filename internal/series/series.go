// Package series holds the append-only last-price history the signal is
// computed from.
package series

import "time"

// Sample is one last-price observation, stamped with the elapsed time
// since the session started.
type Sample struct {
	Elapsed time.Duration `json:"elapsed"`
	Price   float64       `json:"price"`
}

// Series is an ordered, append-only price history. It is mutated only by
// the event loop; concurrent readers must go through the state store's
// published copies.
type Series struct {
	samples    []Sample
	maxSamples int
}

// New returns an empty series. maxSamples bounds retained history; 0
// keeps every sample, matching the original client. Window means read the
// tail, so any cap at or above the long window leaves decisions unchanged.
func New(maxSamples int) *Series {
	if maxSamples < 0 {
		maxSamples = 0
	}
	return &Series{maxSamples: maxSamples}
}

// Append adds a sample at the end of the history.
func (s *Series) Append(sample Sample) {
	s.samples = append(s.samples, sample)
	if s.maxSamples > 0 && len(s.samples) > s.maxSamples {
		// Drop the oldest overflow in place to keep the backing array from
		// growing without bound.
		n := copy(s.samples, s.samples[len(s.samples)-s.maxSamples:])
		s.samples = s.samples[:n]
	}
}

func (s *Series) Len() int {
	return len(s.samples)
}

// Last returns the most recent sample.
func (s *Series) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// TailMean computes the arithmetic mean of the trailing window samples.
// ok is false when the history is shorter than the window or the window
// is not positive.
func (s *Series) TailMean(window int) (mean float64, ok bool) {
	if window <= 0 || len(s.samples) < window {
		return 0, false
	}
	sum := 0.0
	for _, sample := range s.samples[len(s.samples)-window:] {
		sum += sample.Price
	}
	return sum / float64(window), true
}

// Samples returns a copy of the full history.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
