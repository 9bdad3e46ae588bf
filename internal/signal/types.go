package signal

import "time"

// Tier is the subscription level shaping confidence bounds.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierPremium Tier = "PREMIUM"
)

// SignalType is the trade recommendation.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// TrendDirection labels the EMA cross.
type TrendDirection string

const (
	TrendBullish TrendDirection = "BULLISH"
	TrendBearish TrendDirection = "BEARISH"
	TrendNeutral TrendDirection = "NEUTRAL"
)

// AnalysisResult is the immutable output of one completed analysis cycle.
type AnalysisResult struct {
	ID               string         `json:"id"`
	Symbol           string         `json:"symbol"`
	CurrentPrice     float64        `json:"current_price"`
	Signal           SignalType     `json:"signal"`
	Confidence       int            `json:"confidence"` // 0-100
	Trend            TrendDirection `json:"trend"`
	PatternsDetected []string       `json:"patterns_detected"`
	KeySupport       float64        `json:"key_support"`
	KeyResistance    float64        `json:"key_resistance"`
	Reasoning        string         `json:"reasoning"`
	Timestamp        time.Time      `json:"timestamp"`
}

// Confidence bounds per tier. The clamp is a business rule applied as the
// final step of every analysis, local or remote.
const (
	FreeConfidenceMin    = 50
	FreeConfidenceMax    = 60
	PremiumConfidenceMin = 80
	PremiumConfidenceMax = 98
	PremiumBoost         = 20
)

// ClampConfidence applies the tier confidence bounds to a raw value.
func ClampConfidence(raw float64, tier Tier) int {
	if tier == TierPremium {
		return clampInt(int(raw), PremiumConfidenceMin, PremiumConfidenceMax)
	}
	return clampInt(int(raw), FreeConfidenceMin, FreeConfidenceMax)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
