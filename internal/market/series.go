package market

import (
	"sync"
	"time"
)

// PricePoint is a single feed sample.
type PricePoint struct {
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`
	Volume int64     `json:"volume"`
}

// Series is a fixed-length sliding window of price samples. Appends evict the
// oldest sample once the window is full.
type Series struct {
	mu     sync.RWMutex
	points []PricePoint
	size   int
}

// NewSeries creates a series holding at most size samples.
func NewSeries(size int) *Series {
	if size <= 0 {
		size = 60
	}
	return &Series{
		points: make([]PricePoint, 0, size),
		size:   size,
	}
}

// Append adds a sample, evicting the oldest when the window is full.
func (s *Series) Append(p PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.points) >= s.size {
		copy(s.points, s.points[1:])
		s.points[len(s.points)-1] = p
		return
	}
	s.points = append(s.points, p)
}

// Snapshot returns a copy of the current window, oldest first.
func (s *Series) Snapshot() []PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Last returns the most recent sample, or false when the series is empty.
func (s *Series) Last() (PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Len returns the number of samples currently held.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
