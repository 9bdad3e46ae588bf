package signal

import (
	"math"

	"vertx-trading/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// CalculateEMA calculates an Exponential Moving Average over closing prices,
// seeded from the first sample with smoothing k = 2/(period+1).
func CalculateEMA(points []market.PricePoint, period int) float64 {
	if len(points) == 0 {
		return 0
	}
	if len(points) < period {
		return points[len(points)-1].Price
	}

	multiplier := 2.0 / float64(period+1)

	ema := points[0].Price
	for i := 1; i < len(points); i++ {
		ema = (points[i].Price * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// CalculateRSI calculates the Relative Strength Index over the trailing
// period deltas. Returns the neutral value 50 when the series is too short
// and 100 when there are no losses in the window.
func CalculateRSI(points []market.PricePoint, period int) float64 {
	if len(points) < period+1 {
		return 50.0 // Neutral RSI
	}

	gains := 0.0
	losses := 0.0

	for i := len(points) - period; i < len(points); i++ {
		change := points[i].Price - points[i-1].Price
		if change >= 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// VOLATILITY
// ============================================================================

// CalculateStdDev calculates the population standard deviation of the last
// `window` closing prices.
func CalculateStdDev(points []market.PricePoint, window int) float64 {
	if len(points) == 0 {
		return 0
	}
	if window > len(points) {
		window = len(points)
	}

	recent := points[len(points)-window:]

	mean := 0.0
	for _, p := range recent {
		mean += p.Price
	}
	mean /= float64(len(recent))

	variance := 0.0
	for _, p := range recent {
		diff := p.Price - mean
		variance += diff * diff
	}
	variance /= float64(len(recent))

	return math.Sqrt(variance)
}
