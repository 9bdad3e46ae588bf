package signal

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"vertx-trading/internal/market"
)

// Indicator periods used by the engine.
const (
	RSIPeriod        = 14
	EMAShortPeriod   = 7
	EMALongPeriod    = 25
	VolatilityWindow = 10
)

// Engine derives a trade signal deterministically from a price series. It is
// the fallback for the external inference path and must produce a result of
// the same shape.
type Engine struct{}

// NewEngine creates a signal engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Indicators holds the values computed from one series snapshot.
type Indicators struct {
	RSI      float64
	EMAShort float64
	EMALong  float64
	StdDev   float64
}

// ComputeIndicators evaluates the engine's indicator set over a series.
func (e *Engine) ComputeIndicators(points []market.PricePoint) Indicators {
	return Indicators{
		RSI:      CalculateRSI(points, RSIPeriod),
		EMAShort: CalculateEMA(points, EMAShortPeriod),
		EMALong:  CalculateEMA(points, EMALongPeriod),
		StdDev:   CalculateStdDev(points, VolatilityWindow),
	}
}

// Analyze produces a recommendation from a price series. The decision table
// is evaluated top to bottom and the first matching rule wins; the tier clamp
// is always the final step.
func (e *Engine) Analyze(symbol string, points []market.PricePoint, tier Tier) AnalysisResult {
	if len(points) == 0 {
		return AnalysisResult{
			ID:               uuid.New().String(),
			Symbol:           symbol,
			Signal:           SignalHold,
			Trend:            TrendNeutral,
			PatternsDetected: []string{"Technical Analysis"},
			Reasoning:        "No market data available for this asset yet.",
			Timestamp:        time.Now().UTC(),
		}
	}

	ind := e.ComputeIndicators(points)
	lastPrice := points[len(points)-1].Price

	sig := SignalHold
	trend := TrendNeutral
	confidence := 50.0
	var patterns []string
	reasoning := ""

	if ind.EMAShort > ind.EMALong {
		trend = TrendBullish
	} else if ind.EMAShort < ind.EMALong {
		trend = TrendBearish
	}

	switch {
	case ind.RSI < 30:
		sig = SignalBuy
		confidence = 60 + (30 - ind.RSI)
		patterns = append(patterns, "Extreme Oversold (RSI)")
		reasoning = fmt.Sprintf("RSI %.0f indicates strong oversold conditions, suggesting a possible reversal upward.", ind.RSI)
	case ind.RSI > 70:
		sig = SignalSell
		confidence = 60 + (ind.RSI - 70)
		patterns = append(patterns, "Extreme Overbought (RSI)")
		reasoning = fmt.Sprintf("RSI %.0f indicates strong overbought conditions, suggesting a possible correction.", ind.RSI)
	case trend == TrendBullish && ind.RSI > 50:
		sig = SignalBuy
		confidence = 55
		patterns = append(patterns, "Uptrend")
		reasoning = "Moving averages aligned upward with a healthy RSI."
	case trend == TrendBearish && ind.RSI < 50:
		sig = SignalSell
		confidence = 55
		patterns = append(patterns, "Downtrend")
		reasoning = "Moving averages point down and RSI confirms selling momentum."
	default:
		reasoning = "Sideways market with no clear direction. Wait for confirmation."
	}

	if tier == TierPremium {
		confidence += PremiumBoost
	}

	if len(patterns) == 0 {
		patterns = []string{"Technical Analysis"}
	}

	return AnalysisResult{
		ID:               uuid.New().String(),
		Symbol:           symbol,
		CurrentPrice:     lastPrice,
		Signal:           sig,
		Confidence:       ClampConfidence(confidence, tier),
		Trend:            trend,
		PatternsDetected: patterns,
		KeySupport:       round2(lastPrice - 2*ind.StdDev),
		KeyResistance:    round2(lastPrice + 2*ind.StdDev),
		Reasoning:        reasoning,
		Timestamp:        time.Now().UTC(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
