package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vertx-trading/config"
	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/inference"
	"vertx-trading/internal/market"
	"vertx-trading/internal/signal"
	"vertx-trading/internal/subscription"
)

type tamperStub struct {
	tampered bool
}

func (t tamperStub) IsTampered(context.Context, string) bool { return t.tampered }

// newTestScheduler wires a scheduler over an in-memory feed. Credit checks
// that fail do so before the ledger touches storage, so no repository is
// needed.
func newTestScheduler(tamper TamperChecker) *Scheduler {
	bus := events.NewEventBus()
	feed := market.NewFeed(
		[]market.Asset{{Symbol: "BTC/USD", Name: "Bitcoin", BasePrice: 100, Volatility: 1}},
		market.FeedConfig{WindowSize: 10},
		bus,
	)
	ledger := subscription.NewLedger(nil, config.SubscriptionConfig{}, "BTC/USD", bus)
	analyzer := inference.NewAnalyzer(config.InferenceConfig{}, signal.NewEngine())
	return New(feed, analyzer, ledger, tamper, nil, bus, zerolog.Nop())
}

func TestStatusLabelStages(t *testing.T) {
	tests := []struct {
		progress float64
		want     string
	}{
		{0, "Collecting order book and volume data..."},
		{14.9, "Collecting order book and volume data..."},
		{15, "Analyzing BTC/USD market structure..."},
		{29.9, "Analyzing BTC/USD market structure..."},
		{30, "Computing technical indicators (RSI, EMA, MACD, Bollinger)..."},
		{45, "Detecting candle patterns and time fractals..."},
		{60, "Querying neural network and predictive models..."},
		{75, "Cross-checking global market sentiment..."},
		{90, "Validating statistical probability and generating final signal..."},
		{99, "Validating statistical probability and generating final signal..."},
	}

	for _, tt := range tests {
		if got := statusLabel(tt.progress, "BTC/USD"); got != tt.want {
			t.Errorf("statusLabel(%.1f) = %q, want %q", tt.progress, got, tt.want)
		}
	}
}

func TestStatusLabelIncludesSymbol(t *testing.T) {
	if got := statusLabel(20, "XAU/USD"); !strings.Contains(got, "XAU/USD") {
		t.Errorf("expected symbol in structure stage label, got %q", got)
	}
}

func TestRandomDurationBounds(t *testing.T) {
	s := &Scheduler{rng: rand.New(rand.NewSource(1))}

	for i := 0; i < 1000; i++ {
		d := s.randomDuration()
		if d < MinRunDuration || d > MaxRunDuration {
			t.Fatalf("duration %v outside [%v,%v]", d, MinRunDuration, MaxRunDuration)
		}
	}
}

func TestStateIdleForUnknownUser(t *testing.T) {
	s := &Scheduler{runs: make(map[string]*run)}

	snap := s.State("nobody")
	if snap.Phase != PhaseIdle {
		t.Errorf("expected IDLE for unknown user, got %s", snap.Phase)
	}
}

func TestStateReportsCooldownRemaining(t *testing.T) {
	s := &Scheduler{runs: make(map[string]*run)}
	s.runs["u1"] = &run{
		symbol:        "BTC/USD",
		phase:         PhaseCooldown,
		progress:      100,
		cooldownUntil: time.Now().Add(20 * time.Second),
	}

	snap := s.State("u1")
	if snap.Phase != PhaseCooldown {
		t.Fatalf("expected COOLDOWN, got %s", snap.Phase)
	}
	if snap.CooldownRemaining <= 0 || snap.CooldownRemaining > 20 {
		t.Errorf("expected cooldown remaining in (0,20], got %.1f", snap.CooldownRemaining)
	}
}

func TestStateLazyCooldownExpiry(t *testing.T) {
	s := &Scheduler{runs: make(map[string]*run)}
	s.runs["u1"] = &run{
		symbol:        "BTC/USD",
		phase:         PhaseCooldown,
		cooldownUntil: time.Now().Add(-time.Second),
	}

	snap := s.State("u1")
	if snap.Phase != PhaseIdle {
		t.Fatalf("expected expired cooldown to report IDLE, got %s", snap.Phase)
	}
	if _, ok := s.runs["u1"]; ok {
		t.Error("expected expired run removed from the registry")
	}
}

func TestStartRejectsSecondConcurrentRun(t *testing.T) {
	s := newTestScheduler(tamperStub{})
	profile := &database.UserProfile{ID: "u1", Plan: database.PlanPremium, SelectedAsset: "BTC/USD"}

	snap, err := s.Start(context.Background(), profile)
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if snap.Phase != PhaseRunning {
		t.Fatalf("expected RUNNING after start, got %s", snap.Phase)
	}
	defer s.Cancel("u1")

	if _, err := s.Start(context.Background(), profile); !errors.Is(err, ErrAnalysisInProgress) {
		t.Fatalf("expected ErrAnalysisInProgress for a second start, got %v", err)
	}
}

func TestStartReleasesSlotWhenDeductionFails(t *testing.T) {
	s := newTestScheduler(tamperStub{})
	profile := &database.UserProfile{ID: "u1", Plan: database.PlanFree, Credits: 0, SelectedAsset: "BTC/USD"}

	if _, err := s.Start(context.Background(), profile); !errors.Is(err, subscription.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if snap := s.State("u1"); snap.Phase != PhaseIdle {
		t.Fatalf("expected the run slot released after a failed deduction, got %s", snap.Phase)
	}

	// A later valid start must not be blocked by the failed attempt.
	profile.Plan = database.PlanPremium
	snap, err := s.Start(context.Background(), profile)
	if err != nil {
		t.Fatalf("start after released slot failed: %v", err)
	}
	if snap.Phase != PhaseRunning {
		t.Fatalf("expected RUNNING, got %s", snap.Phase)
	}
	s.Cancel("u1")
}

func TestStartBlockedWhileTamperLocked(t *testing.T) {
	s := newTestScheduler(tamperStub{tampered: true})
	profile := &database.UserProfile{ID: "u1", Plan: database.PlanPremium, SelectedAsset: "BTC/USD"}

	if _, err := s.Start(context.Background(), profile); !errors.Is(err, ErrTamperLocked) {
		t.Fatalf("expected ErrTamperLocked, got %v", err)
	}
}

func TestCancelIgnoresCooldown(t *testing.T) {
	s := &Scheduler{runs: make(map[string]*run), logger: zerolog.Nop()}
	s.runs["u1"] = &run{
		symbol:        "BTC/USD",
		phase:         PhaseCooldown,
		cooldownUntil: time.Now().Add(20 * time.Second),
	}

	s.Cancel("u1")

	if _, ok := s.runs["u1"]; !ok {
		t.Error("cancel must not remove a cooling-down run")
	}
}

func TestCancelStopsRunningAnalysis(t *testing.T) {
	s := &Scheduler{runs: make(map[string]*run), logger: zerolog.Nop()}
	canceled := false
	s.runs["u1"] = &run{
		symbol: "BTC/USD",
		phase:  PhaseRunning,
		cancel: func() { canceled = true },
	}

	s.Cancel("u1")

	if !canceled {
		t.Error("expected run context canceled")
	}
	if _, ok := s.runs["u1"]; ok {
		t.Error("expected running analysis removed on cancel")
	}
}
