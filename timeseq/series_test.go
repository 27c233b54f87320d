package timeseq

import (
	"testing"

	"go.viam.com/test"
)

func makeSeries(times ...float64) *Series[int] {
	samples := make([]Sample[int], len(times))
	for i, ts := range times {
		samples[i] = Sample[int]{Time: ts, Value: i}
	}
	return NewSeries(samples)
}

func TestNearestExact(t *testing.T) {
	s := makeSeries(1.0, 2.0, 3.0)
	for i, ts := range []float64{1.0, 2.0, 3.0} {
		got, ok := s.Nearest(ts)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got.Time, test.ShouldEqual, ts)
		test.That(t, got.Value, test.ShouldEqual, i)
	}
}

func TestNearestBetween(t *testing.T) {
	s := makeSeries(1.0, 2.0)
	got, ok := s.Nearest(1.4)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Time, test.ShouldEqual, 1.0)

	got, ok = s.Nearest(1.6)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Time, test.ShouldEqual, 2.0)
}

func TestNearestTieBreaksLater(t *testing.T) {
	s := makeSeries(1.0, 2.0, 3.0)
	got, ok := s.Nearest(1.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Time, test.ShouldEqual, 2.0)

	got, ok = s.Nearest(2.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Time, test.ShouldEqual, 3.0)
}

func TestNearestClamps(t *testing.T) {
	s := makeSeries(1.0, 2.0, 3.0)
	got, ok := s.Nearest(-10)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Time, test.ShouldEqual, 1.0)

	got, ok = s.Nearest(99)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, got.Time, test.ShouldEqual, 3.0)
}

func TestNearestEmpty(t *testing.T) {
	s := NewSeries[int](nil)
	test.That(t, s.NearestIndex(1.0), test.ShouldEqual, -1)
	_, ok := s.Nearest(1.0)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestNewSeriesSortsInput(t *testing.T) {
	s := NewSeries([]Sample[string]{
		{Time: 3.0, Value: "c"},
		{Time: 1.0, Value: "a"},
		{Time: 2.0, Value: "b"},
	})
	test.That(t, s.Len(), test.ShouldEqual, 3)
	test.That(t, s.At(0).Value, test.ShouldEqual, "a")
	test.That(t, s.At(1).Value, test.ShouldEqual, "b")
	test.That(t, s.At(2).Value, test.ShouldEqual, "c")

	first, ok := s.First()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, first.Time, test.ShouldEqual, 1.0)
	last, ok := s.Last()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, last.Time, test.ShouldEqual, 3.0)
}

func TestSpanAndRate(t *testing.T) {
	s := makeSeries(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	test.That(t, s.Span(), test.ShouldEqual, 9.0)
	test.That(t, s.Rate(), test.ShouldAlmostEqual, 1.0)

	short := makeSeries(5.0)
	test.That(t, short.Span(), test.ShouldEqual, 0.0)
	test.That(t, short.Rate(), test.ShouldEqual, 0.0)

	degenerate := makeSeries(2.0, 2.0)
	test.That(t, degenerate.Rate(), test.ShouldEqual, 0.0)
}

func TestTimestampsCopy(t *testing.T) {
	s := makeSeries(1.0, 2.0)
	ts := s.Timestamps()
	test.That(t, ts, test.ShouldResemble, []float64{1.0, 2.0})
	ts[0] = 42
	test.That(t, s.At(0).Time, test.ShouldEqual, 1.0)
}
