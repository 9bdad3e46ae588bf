package inference

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/market"
	"vertx-trading/internal/signal"
)

func testSeries(prices ...float64) []market.PricePoint {
	points := make([]market.PricePoint, len(prices))
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, p := range prices {
		points[i] = market.PricePoint{Time: base.Add(time.Duration(i) * time.Minute), Price: p}
	}
	return points
}

func TestAnalyzeDisabledUsesEngine(t *testing.T) {
	analyzer := NewAnalyzer(config.InferenceConfig{Enabled: false}, signal.NewEngine())

	result := analyzer.Analyze(context.Background(), "BTC/USD", testSeries(100, 101, 102), signal.TierFree)

	if result.Symbol != "BTC/USD" {
		t.Errorf("expected engine result for BTC/USD, got %q", result.Symbol)
	}
	if result.ID == "" {
		t.Error("expected a generated result id")
	}
}

func TestAnalyzeRemoteFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := NewAnalyzer(config.InferenceConfig{
		Enabled: true,
		URL:     server.URL,
		Timeout: time.Second,
	}, signal.NewEngine())

	result := analyzer.Analyze(context.Background(), "ETH/USD", testSeries(100, 101, 102), signal.TierFree)

	if result.Confidence < signal.FreeConfidenceMin || result.Confidence > signal.FreeConfidenceMax {
		t.Errorf("fallback confidence %d outside free bounds", result.Confidence)
	}
}

func TestAnalyzeRemoteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"signal": "BUY",
			"confidence": 87,
			"trend": "BULLISH",
			"patterns": ["Double Bottom"],
			"keySupport": 95,
			"keyResistance": 110,
			"reasoning": "Momentum breakout"
		}`))
	}))
	defer server.Close()

	analyzer := NewAnalyzer(config.InferenceConfig{
		Enabled: true,
		URL:     server.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
	}, signal.NewEngine())

	result := analyzer.Analyze(context.Background(), "BTC/USD", testSeries(100, 101, 102), signal.TierPremium)

	if result.Signal != signal.SignalBuy {
		t.Errorf("expected BUY, got %s", result.Signal)
	}
	if result.Trend != signal.TrendBullish {
		t.Errorf("expected BULLISH, got %s", result.Trend)
	}
	if result.Confidence != 87 {
		t.Errorf("expected confidence 87, got %d", result.Confidence)
	}
	if result.KeySupport != 95 || result.KeyResistance != 110 {
		t.Errorf("expected bands 95/110, got %.2f/%.2f", result.KeySupport, result.KeyResistance)
	}
	if result.Reasoning != "Momentum breakout" {
		t.Errorf("unexpected reasoning %q", result.Reasoning)
	}
}

func TestNormalizeDefensiveDefaults(t *testing.T) {
	analyzer := NewAnalyzer(config.InferenceConfig{}, signal.NewEngine())
	ind := signal.Indicators{RSI: 50, StdDev: 5}

	result := analyzer.normalize("BTC/USD", 100, ind, signal.TierFree, &Response{
		Signal:        "SHORT_SQUEEZE",
		Trend:         "SIDEWAYS-ISH",
		Confidence:    math.NaN(),
		KeySupport:    120,
		KeyResistance: 80,
	})

	if result.Signal != signal.SignalHold {
		t.Errorf("unknown signal must default to HOLD, got %s", result.Signal)
	}
	if result.Trend != signal.TrendNeutral {
		t.Errorf("unknown trend must default to NEUTRAL, got %s", result.Trend)
	}
	// NaN confidence collapses to 0 and the free clamp raises it to the floor
	if result.Confidence != signal.FreeConfidenceMin {
		t.Errorf("expected clamped confidence %d, got %d", signal.FreeConfidenceMin, result.Confidence)
	}
	if len(result.PatternsDetected) != 1 || result.PatternsDetected[0] != "Technical Analysis" {
		t.Errorf("expected default pattern, got %v", result.PatternsDetected)
	}
	// Inverted bands get rebuilt from volatility: 100 +/- 2*5
	if result.KeySupport != 90 || result.KeyResistance != 110 {
		t.Errorf("expected rebuilt bands 90/110, got %.2f/%.2f", result.KeySupport, result.KeyResistance)
	}
	if result.Reasoning == "" {
		t.Error("expected default reasoning")
	}
}

func TestNormalizeReappliesTierClamp(t *testing.T) {
	analyzer := NewAnalyzer(config.InferenceConfig{}, signal.NewEngine())

	result := analyzer.normalize("BTC/USD", 100, signal.Indicators{StdDev: 1}, signal.TierPremium, &Response{
		Signal:        "SELL",
		Trend:         "BEARISH",
		Confidence:    250,
		KeySupport:    90,
		KeyResistance: 110,
	})

	if result.Confidence != signal.PremiumConfidenceMax {
		t.Errorf("expected clamp to %d, got %d", signal.PremiumConfidenceMax, result.Confidence)
	}
}
