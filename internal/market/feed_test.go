package market

import (
	"testing"
	"time"
)

func testCatalog() []Asset {
	return []Asset{
		{Symbol: "BTC/USD", Name: "Bitcoin", BasePrice: 65000, Volatility: 150},
		{Symbol: "ETH/USD", Name: "Ethereum", BasePrice: 3500, Volatility: 20},
	}
}

func TestNewFeedBackfillsFullWindow(t *testing.T) {
	feed := NewFeed(testCatalog(), FeedConfig{TickInterval: time.Second, WindowSize: 30}, nil)

	for _, asset := range testCatalog() {
		points, err := feed.Snapshot(asset.Symbol)
		if err != nil {
			t.Fatalf("Snapshot(%s): %v", asset.Symbol, err)
		}
		if len(points) != 30 {
			t.Errorf("expected 30 backfilled samples for %s, got %d", asset.Symbol, len(points))
		}
		for i := 1; i < len(points); i++ {
			if !points[i].Time.After(points[i-1].Time) {
				t.Fatalf("backfill for %s not in chronological order at index %d", asset.Symbol, i)
			}
		}
	}
}

func TestFeedSnapshotUnknownSymbol(t *testing.T) {
	feed := NewFeed(testCatalog(), FeedConfig{}, nil)

	if _, err := feed.Snapshot("DOGE/USD"); err == nil {
		t.Error("expected error for unknown symbol")
	}
	if _, err := feed.LastPrice("DOGE/USD"); err == nil {
		t.Error("expected error for unknown symbol")
	}
}

func TestFeedTickAppendsPositivePrices(t *testing.T) {
	feed := NewFeed(testCatalog(), FeedConfig{TickInterval: time.Second, WindowSize: 10}, nil)

	now := time.Now()
	for i := 0; i < 50; i++ {
		feed.tick(now.Add(time.Duration(i) * time.Second))
	}

	for _, asset := range testCatalog() {
		points, err := feed.Snapshot(asset.Symbol)
		if err != nil {
			t.Fatalf("Snapshot(%s): %v", asset.Symbol, err)
		}
		if len(points) != 10 {
			t.Errorf("expected window capped at 10 for %s, got %d", asset.Symbol, len(points))
		}
		for _, p := range points {
			if p.Price < 0.01 {
				t.Errorf("price below floor for %s: %.4f", asset.Symbol, p.Price)
			}
		}
	}
}

func TestFeedStats(t *testing.T) {
	feed := NewFeed(testCatalog(), FeedConfig{WindowSize: 20}, nil)

	stats, err := feed.Stats("BTC/USD")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	points, _ := feed.Snapshot("BTC/USD")
	if stats.Last != points[len(points)-1].Price {
		t.Errorf("stats last %.2f does not match newest sample %.2f", stats.Last, points[len(points)-1].Price)
	}
	if stats.High < stats.Low {
		t.Errorf("high %.2f below low %.2f", stats.High, stats.Low)
	}
	if stats.Volume <= 0 {
		t.Errorf("expected positive window volume, got %d", stats.Volume)
	}
}

func TestFindAsset(t *testing.T) {
	if _, ok := FindAsset(DefaultAssets, "BTC/USD"); !ok {
		t.Error("expected BTC/USD in the default catalog")
	}
	if _, ok := FindAsset(DefaultAssets, "NOPE"); ok {
		t.Error("did not expect NOPE in the default catalog")
	}
}
