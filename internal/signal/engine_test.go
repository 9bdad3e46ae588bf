package signal

import (
	"testing"
)

func TestAnalyzeEmptySeries(t *testing.T) {
	engine := NewEngine()

	result := engine.Analyze("BTC/USD", nil, TierFree)

	if result.Signal != SignalHold {
		t.Errorf("expected HOLD for empty series, got %s", result.Signal)
	}
	if result.Confidence != 0 {
		t.Errorf("expected confidence 0 for empty series, got %d", result.Confidence)
	}
	if result.ID == "" {
		t.Error("expected a generated result id")
	}
}

func TestAnalyzeOversoldBuy(t *testing.T) {
	engine := NewEngine()

	// Steep fall drives RSI toward 0 and triggers the oversold rule
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1000 - float64(i)*10
	}
	result := engine.Analyze("BTC/USD", seriesOf(prices...), TierFree)

	if result.Signal != SignalBuy {
		t.Fatalf("expected BUY for oversold series, got %s", result.Signal)
	}
	if result.Confidence < FreeConfidenceMin || result.Confidence > FreeConfidenceMax {
		t.Errorf("free confidence %d outside [%d,%d]", result.Confidence, FreeConfidenceMin, FreeConfidenceMax)
	}
	if result.Trend != TrendBearish {
		t.Errorf("expected BEARISH trend on a falling series, got %s", result.Trend)
	}
}

func TestAnalyzeOverboughtSell(t *testing.T) {
	engine := NewEngine()

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1000 + float64(i)*10
	}
	result := engine.Analyze("ETH/USD", seriesOf(prices...), TierFree)

	if result.Signal != SignalSell {
		t.Fatalf("expected SELL for overbought series, got %s", result.Signal)
	}
}

func TestAnalyzePremiumConfidenceBounds(t *testing.T) {
	engine := NewEngine()

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 1000 + float64(i)*10
	}
	result := engine.Analyze("ETH/USD", seriesOf(prices...), TierPremium)

	if result.Confidence < PremiumConfidenceMin || result.Confidence > PremiumConfidenceMax {
		t.Errorf("premium confidence %d outside [%d,%d]", result.Confidence, PremiumConfidenceMin, PremiumConfidenceMax)
	}
}

func TestAnalyzeUptrendBuy(t *testing.T) {
	engine := NewEngine()

	// Sawtooth rise: +2/-1 keeps RSI between 50 and 70 while both EMAs climb
	prices := []float64{100}
	for i := 0; i < 29; i++ {
		last := prices[len(prices)-1]
		if i%2 == 0 {
			prices = append(prices, last+2)
		} else {
			prices = append(prices, last-1)
		}
	}
	result := engine.Analyze("BTC/USD", seriesOf(prices...), TierFree)

	if result.Signal != SignalBuy {
		t.Fatalf("expected BUY in a steady uptrend, got %s", result.Signal)
	}
	if result.Trend != TrendBullish {
		t.Errorf("expected BULLISH trend, got %s", result.Trend)
	}
	if result.Confidence != 55 {
		t.Errorf("expected trend-rule confidence 55, got %d", result.Confidence)
	}
}

func TestAnalyzeConflictingSignalsHold(t *testing.T) {
	engine := NewEngine()

	// Long decline keeps the EMA cross bearish, then a sawtooth recovery
	// pushes the RSI window above 50. Bearish trend with bullish momentum
	// matches no rule, so the engine holds.
	prices := []float64{}
	for p := 200.0; p >= 125; p -= 5 {
		prices = append(prices, p)
	}
	for i := 0; i < 14; i++ {
		last := prices[len(prices)-1]
		if i%2 == 0 {
			prices = append(prices, last+2)
		} else {
			prices = append(prices, last-1)
		}
	}
	result := engine.Analyze("SOL/USD", seriesOf(prices...), TierFree)

	if result.Signal != SignalHold {
		t.Fatalf("expected HOLD on conflicting signals, got %s", result.Signal)
	}
	if result.Trend != TrendBearish {
		t.Errorf("expected BEARISH trend, got %s", result.Trend)
	}
	if result.Confidence != FreeConfidenceMin {
		t.Errorf("expected baseline confidence %d, got %d", FreeConfidenceMin, result.Confidence)
	}
}

func TestAnalyzeSupportResistanceBands(t *testing.T) {
	engine := NewEngine()

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 500
	}
	result := engine.Analyze("SOL/USD", seriesOf(prices...), TierFree)

	// Flat series: zero volatility collapses the bands onto the price
	if result.KeySupport != 500 || result.KeyResistance != 500 {
		t.Errorf("expected bands at 500/500, got %.2f/%.2f", result.KeySupport, result.KeyResistance)
	}

	varied := engine.Analyze("BTC/USD", seriesOf(100, 120, 80, 110, 90, 105, 95, 115, 85, 100, 120, 80), TierFree)
	if varied.KeySupport >= varied.CurrentPrice {
		t.Errorf("support %.2f not below price %.2f", varied.KeySupport, varied.CurrentPrice)
	}
	if varied.KeyResistance <= varied.CurrentPrice {
		t.Errorf("resistance %.2f not above price %.2f", varied.KeyResistance, varied.CurrentPrice)
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name string
		raw  float64
		tier Tier
		want int
	}{
		{"free below floor", 10, TierFree, FreeConfidenceMin},
		{"free above ceiling", 95, TierFree, FreeConfidenceMax},
		{"free in range", 55, TierFree, 55},
		{"premium below floor", 55, TierPremium, PremiumConfidenceMin},
		{"premium above ceiling", 120, TierPremium, PremiumConfidenceMax},
		{"premium in range", 85, TierPremium, 85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampConfidence(tt.raw, tt.tier); got != tt.want {
				t.Errorf("ClampConfidence(%.0f, %s) = %d, want %d", tt.raw, tt.tier, got, tt.want)
			}
		})
	}
}

func TestAnalyzeDeterministicApartFromID(t *testing.T) {
	engine := NewEngine()
	points := seriesOf(100, 102, 101, 103, 104, 102, 105, 106, 104, 107, 108, 106, 109, 110, 108, 111)

	a := engine.Analyze("BTC/USD", points, TierFree)
	b := engine.Analyze("BTC/USD", points, TierFree)

	if a.Signal != b.Signal || a.Confidence != b.Confidence || a.Trend != b.Trend {
		t.Errorf("expected identical decisions for identical input: %+v vs %+v", a, b)
	}
	if a.ID == b.ID {
		t.Error("expected distinct result ids")
	}
}
