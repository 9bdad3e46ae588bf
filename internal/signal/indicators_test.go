package signal

import (
	"math"
	"testing"
	"time"

	"vertx-trading/internal/market"
)

func seriesOf(prices ...float64) []market.PricePoint {
	points := make([]market.PricePoint, len(prices))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range prices {
		points[i] = market.PricePoint{Time: base.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return points
}

func TestCalculateRSINeutralUnderMinimumSamples(t *testing.T) {
	// RSI(14) needs 15 samples; below that the indicator reports neutral
	points := seriesOf(100, 101, 102, 103, 104)

	if got := CalculateRSI(points, 14); got != 50.0 {
		t.Errorf("expected neutral RSI 50 with %d samples, got %.2f", len(points), got)
	}
}

func TestCalculateRSIMaxOnZeroLoss(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}

	if got := CalculateRSI(seriesOf(prices...), 14); got != 100.0 {
		t.Errorf("expected RSI 100 for a loss-free series, got %.2f", got)
	}
}

func TestCalculateRSIFallingSeries(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100 - float64(i)
	}

	got := CalculateRSI(seriesOf(prices...), 14)
	if got >= 50 {
		t.Errorf("expected RSI below 50 for a falling series, got %.2f", got)
	}
}

func TestCalculateEMAShortSeries(t *testing.T) {
	points := seriesOf(100, 110)

	// Under one period of data the EMA degrades to the last price
	if got := CalculateEMA(points, 7); got != 110 {
		t.Errorf("expected last price 110, got %.2f", got)
	}
}

func TestCalculateEMAEmpty(t *testing.T) {
	if got := CalculateEMA(nil, 7); got != 0 {
		t.Errorf("expected 0 for empty series, got %.2f", got)
	}
}

func TestCalculateEMASeededFromFirstSample(t *testing.T) {
	// Constant series: EMA must equal that constant regardless of period
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 250
	}

	got := CalculateEMA(seriesOf(prices...), 7)
	if math.Abs(got-250) > 1e-9 {
		t.Errorf("expected EMA 250 for constant series, got %.6f", got)
	}
}

func TestCalculateEMATracksTrend(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	points := seriesOf(prices...)

	short := CalculateEMA(points, 7)
	long := CalculateEMA(points, 25)
	if short <= long {
		t.Errorf("expected short EMA above long EMA in an uptrend, got %.2f <= %.2f", short, long)
	}
}

func TestCalculateStdDevConstantSeries(t *testing.T) {
	prices := make([]float64, 15)
	for i := range prices {
		prices[i] = 42
	}

	if got := CalculateStdDev(seriesOf(prices...), 10); got != 0 {
		t.Errorf("expected stddev 0 for constant series, got %.4f", got)
	}
}

func TestCalculateStdDevUsesLastWindow(t *testing.T) {
	// Noise outside the window must not affect the result
	prices := []float64{1000, 2000, 3000}
	for i := 0; i < 10; i++ {
		prices = append(prices, 100)
	}

	if got := CalculateStdDev(seriesOf(prices...), 10); got != 0 {
		t.Errorf("expected stddev 0 over the trailing window, got %.4f", got)
	}
}
