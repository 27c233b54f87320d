// Package timeseq indexes timestamped sensor samples for nearest-neighbor lookup.
package timeseq

import "sort"

// A Sample pairs a value with the epoch time, in seconds, at which it was recorded.
type Sample[T any] struct {
	Time  float64
	Value T
}

// Series is a time-ordered collection of samples supporting nearest-timestamp
// lookup. Ordering is established at construction; lookups are O(log n).
type Series[T any] struct {
	samples []Sample[T]
}

// NewSeries copies the given samples into a series, sorting them by time.
// The sort is stable so samples sharing a timestamp keep their input order.
func NewSeries[T any](samples []Sample[T]) *Series[T] {
	copied := make([]Sample[T], len(samples))
	copy(copied, samples)
	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Time < copied[j].Time
	})
	return &Series[T]{samples: copied}
}

// Len returns the number of samples in the series.
func (s *Series[T]) Len() int {
	return len(s.samples)
}

// At returns the sample at index i.
func (s *Series[T]) At(i int) Sample[T] {
	return s.samples[i]
}

// First returns the earliest sample, or false if the series is empty.
func (s *Series[T]) First() (Sample[T], bool) {
	if len(s.samples) == 0 {
		var zero Sample[T]
		return zero, false
	}
	return s.samples[0], true
}

// Last returns the latest sample, or false if the series is empty.
func (s *Series[T]) Last() (Sample[T], bool) {
	if len(s.samples) == 0 {
		var zero Sample[T]
		return zero, false
	}
	return s.samples[len(s.samples)-1], true
}

// Span returns the duration in seconds covered by the series.
func (s *Series[T]) Span() float64 {
	if len(s.samples) < 2 {
		return 0
	}
	return s.samples[len(s.samples)-1].Time - s.samples[0].Time
}

// Rate estimates the sample rate in Hz as (n-1)/span. It returns 0 for
// series too short or too degenerate to carry a rate.
func (s *Series[T]) Rate() float64 {
	span := s.Span()
	if span <= 0 {
		return 0
	}
	return float64(len(s.samples)-1) / span
}

// Timestamps returns a copy of the sample times in order.
func (s *Series[T]) Timestamps() []float64 {
	ts := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		ts[i] = sample.Time
	}
	return ts
}

// NearestIndex returns the index of the sample whose time is closest to t,
// or -1 if the series is empty. Queries before the first sample clamp to the
// first, queries after the last clamp to the last. A query exactly midway
// between two samples resolves to the later one; callers depend on that
// tie-break, so treat it as part of the contract.
func (s *Series[T]) NearestIndex(t float64) int {
	n := len(s.samples)
	if n == 0 {
		return -1
	}
	idx := sort.Search(n, func(i int) bool {
		return s.samples[i].Time >= t
	})
	if idx == 0 {
		return 0
	}
	if idx == n {
		return n - 1
	}
	before := s.samples[idx-1].Time
	after := s.samples[idx].Time
	if (t - before) < (after - t) {
		return idx - 1
	}
	return idx
}

// Nearest returns the sample whose time is closest to t, with the same
// clamping and tie-break behavior as NearestIndex. It returns false if the
// series is empty.
func (s *Series[T]) Nearest(t float64) (Sample[T], bool) {
	idx := s.NearestIndex(t)
	if idx < 0 {
		var zero Sample[T]
		return zero, false
	}
	return s.samples[idx], true
}
