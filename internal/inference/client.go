// Package inference calls an external model for premium analyses and falls
// back to the deterministic engine when the remote path is disabled, slow or
// returns garbage. The caller always gets a usable result.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/logging"
	"vertx-trading/internal/market"
	"vertx-trading/internal/signal"

	"github.com/google/uuid"
)

// Request is the payload sent to the inference endpoint.
type Request struct {
	Symbol       string  `json:"symbol"`
	CurrentPrice float64 `json:"currentPrice"`
	RSI          float64 `json:"rsi"`
	EMA7         float64 `json:"ema7"`
	EMA25        float64 `json:"ema25"`
	Tier         string  `json:"tier"`
	Model        string  `json:"model,omitempty"`
}

// Response is the model's analysis. Every field is treated as untrusted and
// normalized before use.
type Response struct {
	Signal        string   `json:"signal"`
	Confidence    float64  `json:"confidence"`
	Trend         string   `json:"trend"`
	Patterns      []string `json:"patterns"`
	KeySupport    float64  `json:"keySupport"`
	KeyResistance float64  `json:"keyResistance"`
	Reasoning     string   `json:"reasoning"`
}

// Client posts analysis requests to the configured endpoint.
type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

// NewClient creates an inference client from configuration.
func NewClient(cfg config.InferenceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   &http.Client{Timeout: timeout},
	}
}

// Infer posts the request and decodes the model response.
func (c *Client) Infer(ctx context.Context, req Request) (*Response, error) {
	req.Model = c.model

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference returned status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	return &out, nil
}

// Analyzer is the single entry point for producing an analysis result. When
// inference is disabled or fails it runs the deterministic engine instead;
// the caller cannot tell which path produced the result.
type Analyzer struct {
	client  *Client // nil when disabled
	engine  *signal.Engine
	logger  *logging.Logger
	enabled bool
}

// NewAnalyzer creates an analyzer. The engine is required; the remote client
// is used only when cfg.Enabled is set and a URL is configured.
func NewAnalyzer(cfg config.InferenceConfig, engine *signal.Engine) *Analyzer {
	a := &Analyzer{
		engine:  engine,
		logger:  logging.WithComponent("inference"),
		enabled: cfg.Enabled && cfg.URL != "",
	}
	if a.enabled {
		a.client = NewClient(cfg)
	}
	return a
}

// Analyze produces an analysis result for the series.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, points []market.PricePoint, tier signal.Tier) signal.AnalysisResult {
	if !a.enabled || len(points) == 0 {
		return a.engine.Analyze(symbol, points, tier)
	}

	ind := a.engine.ComputeIndicators(points)
	last := points[len(points)-1].Price

	resp, err := a.client.Infer(ctx, Request{
		Symbol:       symbol,
		CurrentPrice: last,
		RSI:          ind.RSI,
		EMA7:         ind.EMAShort,
		EMA25:        ind.EMALong,
		Tier:         string(tier),
	})
	if err != nil {
		a.logger.WithError(err).Debug("Inference unavailable, using deterministic engine")
		return a.engine.Analyze(symbol, points, tier)
	}

	return a.normalize(symbol, last, ind, tier, resp)
}

// normalize turns an untrusted model response into a well-formed result.
// Unknown enum values and out-of-range numbers get deterministic defaults,
// and the tier confidence clamp is re-applied regardless of what the model
// claimed.
func (a *Analyzer) normalize(symbol string, price float64, ind signal.Indicators, tier signal.Tier, resp *Response) signal.AnalysisResult {
	sig := signal.SignalHold
	switch signal.SignalType(resp.Signal) {
	case signal.SignalBuy, signal.SignalSell, signal.SignalHold:
		sig = signal.SignalType(resp.Signal)
	}

	trend := signal.TrendNeutral
	switch signal.TrendDirection(resp.Trend) {
	case signal.TrendBullish, signal.TrendBearish, signal.TrendNeutral:
		trend = signal.TrendDirection(resp.Trend)
	}

	confidence := resp.Confidence
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		confidence = 0
	}

	patterns := resp.Patterns
	if len(patterns) == 0 {
		patterns = []string{"Technical Analysis"}
	}

	support := resp.KeySupport
	resistance := resp.KeyResistance
	if support <= 0 || resistance <= 0 || support >= resistance {
		support = round2(price - 2*ind.StdDev)
		resistance = round2(price + 2*ind.StdDev)
	}

	reasoning := resp.Reasoning
	if reasoning == "" {
		reasoning = "Model analysis of current market structure."
	}

	return signal.AnalysisResult{
		ID:               uuid.New().String(),
		Symbol:           symbol,
		CurrentPrice:     price,
		Signal:           sig,
		Confidence:       signal.ClampConfidence(confidence, tier),
		Trend:            trend,
		PatternsDetected: patterns,
		KeySupport:       support,
		KeyResistance:    resistance,
		Reasoning:        reasoning,
		Timestamp:        time.Now(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
