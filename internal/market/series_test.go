package market

import (
	"testing"
	"time"
)

func TestSeriesAppendEvictsOldest(t *testing.T) {
	s := NewSeries(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Append(PricePoint{Time: base.Add(time.Duration(i) * time.Minute), Price: float64(i)})
	}

	if s.Len() != 3 {
		t.Fatalf("expected window of 3 samples, got %d", s.Len())
	}

	points := s.Snapshot()
	if points[0].Price != 2 || points[2].Price != 4 {
		t.Errorf("expected window [2,3,4], got %+v", points)
	}
}

func TestSeriesLastEmpty(t *testing.T) {
	s := NewSeries(10)

	if _, ok := s.Last(); ok {
		t.Error("expected no last sample for an empty series")
	}
}

func TestSeriesSnapshotIsCopy(t *testing.T) {
	s := NewSeries(5)
	s.Append(PricePoint{Price: 100})

	snap := s.Snapshot()
	snap[0].Price = 999

	last, _ := s.Last()
	if last.Price != 100 {
		t.Errorf("snapshot mutation leaked into the series: %.2f", last.Price)
	}
}

func TestSeriesDefaultSize(t *testing.T) {
	s := NewSeries(0)

	for i := 0; i < 100; i++ {
		s.Append(PricePoint{Price: float64(i)})
	}
	if s.Len() != 60 {
		t.Errorf("expected default window of 60, got %d", s.Len())
	}
}
