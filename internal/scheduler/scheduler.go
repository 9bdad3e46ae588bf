// Package scheduler runs the analysis lifecycle per user: Idle, Running,
// Completed, Cooldown. One run at a time per user, credit deducted before
// the run starts, exactly one engine invocation at completion on the
// freshest data.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/inference"
	"vertx-trading/internal/market"
	"vertx-trading/internal/signal"
	"vertx-trading/internal/subscription"
)

// Run lifecycle phases.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseRunning   Phase = "RUNNING"
	PhaseCompleted Phase = "COMPLETED"
	PhaseCooldown  Phase = "COOLDOWN"
)

// Timing constants for the analysis run.
const (
	MinRunDuration   = 50 * time.Second
	MaxRunDuration   = 60 * time.Second
	ProgressTick     = 200 * time.Millisecond
	CooldownDuration = 30 * time.Second
	ShortCooldown    = 5 * time.Second // Applied when the result carries no confidence
)

// Scheduler errors.
var (
	ErrAnalysisInProgress = errors.New("analysis already in progress")
	ErrCooldownActive     = errors.New("cooldown active")
	ErrTamperLocked       = errors.New("time integrity check failed, analysis suspended")
	ErrUnknownAsset       = errors.New("unknown asset")
)

// TamperChecker gates run starts on the integrity registry.
type TamperChecker interface {
	IsTampered(ctx context.Context, userID string) bool
}

// HistoryRecorder persists completed results.
type HistoryRecorder interface {
	RecordResult(ctx context.Context, userID string, result signal.AnalysisResult) error
}

// Snapshot is the externally visible state of a user's run.
type Snapshot struct {
	Phase             Phase                  `json:"phase"`
	Symbol            string                 `json:"symbol,omitempty"`
	Progress          float64                `json:"progress"`
	Status            string                 `json:"status,omitempty"`
	StartedAt         *time.Time             `json:"started_at,omitempty"`
	CooldownRemaining float64                `json:"cooldown_remaining,omitempty"` // Seconds
	Result            *signal.AnalysisResult `json:"result,omitempty"`
}

type run struct {
	symbol        string
	tier          signal.Tier
	startedAt     time.Time
	total         time.Duration
	progress      float64
	status        string
	phase         Phase
	cooldownUntil time.Time
	result        *signal.AnalysisResult
	cancel        context.CancelFunc
}

// Scheduler coordinates per-user analysis runs.
type Scheduler struct {
	feed     *market.Feed
	analyzer *inference.Analyzer
	ledger   *subscription.Ledger
	tamper   TamperChecker
	history  HistoryRecorder
	bus      *events.EventBus
	logger   zerolog.Logger

	mu   sync.Mutex
	runs map[string]*run

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New creates a scheduler.
func New(
	feed *market.Feed,
	analyzer *inference.Analyzer,
	ledger *subscription.Ledger,
	tamper TamperChecker,
	history HistoryRecorder,
	bus *events.EventBus,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		feed:     feed,
		analyzer: analyzer,
		ledger:   ledger,
		tamper:   tamper,
		history:  history,
		bus:      bus,
		logger:   logger.With().Str("component", "AnalysisScheduler").Logger(),
		runs:     make(map[string]*run),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins an analysis run for the profile's selected asset. The credit
// is spent before the run begins and is not refunded on cancellation.
func (s *Scheduler) Start(ctx context.Context, profile *database.UserProfile) (Snapshot, error) {
	userID := profile.ID

	if s.tamper.IsTampered(ctx, userID) {
		return Snapshot{}, ErrTamperLocked
	}

	symbol := profile.SelectedAsset
	if _, err := s.feed.Snapshot(symbol); err != nil {
		return Snapshot{}, ErrUnknownAsset
	}

	tier := signal.TierFree
	if profile.IsPremium() {
		tier = signal.TierPremium
	}

	total := s.randomDuration()
	runCtx, cancel := context.WithCancel(context.Background())

	r := &run{
		symbol:    symbol,
		tier:      tier,
		startedAt: time.Now(),
		total:     total,
		status:    "Connecting to analysis servers...",
		phase:     PhaseRunning,
		cancel:    cancel,
	}

	// Reserve the run slot before touching the ledger so two concurrent
	// starts cannot both charge the user; the loser is rejected before its
	// credit is spent.
	s.mu.Lock()
	if existing := s.currentLocked(userID); existing != nil {
		phase := existing.phase
		s.mu.Unlock()
		cancel()
		if phase == PhaseRunning {
			return Snapshot{}, ErrAnalysisInProgress
		}
		return Snapshot{}, ErrCooldownActive
	}
	s.runs[userID] = r
	s.mu.Unlock()

	// Deduct outside the lock: a slow database write must not block other
	// users' state queries. The reservation is released when the deduction
	// fails.
	if _, err := s.ledger.DeductCredit(ctx, profile); err != nil {
		s.mu.Lock()
		if cur, ok := s.runs[userID]; ok && cur == r {
			delete(s.runs, userID)
		}
		s.mu.Unlock()
		cancel()
		return Snapshot{}, err
	}

	s.bus.Publish(events.Event{
		Type:      events.EventAnalysisStarted,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"symbol": symbol, "duration_ms": total.Milliseconds()},
	})

	s.logger.Info().
		Str("user_id", userID).
		Str("symbol", symbol).
		Dur("duration", total).
		Msg("Analysis run started")

	go s.runLoop(runCtx, userID, r)

	s.mu.Lock()
	snap := s.snapshotOf(r)
	s.mu.Unlock()
	return snap, nil
}

// Cancel aborts a running analysis, used on logout and asset switches. The
// spent credit is not refunded. Cancelling an idle or cooling-down user is a
// no-op.
func (s *Scheduler) Cancel(userID string) {
	s.mu.Lock()
	r, ok := s.runs[userID]
	if ok && r.phase == PhaseRunning {
		r.cancel()
		delete(s.runs, userID)
		s.logger.Info().Str("user_id", userID).Msg("Analysis run canceled")
	}
	s.mu.Unlock()
}

// State returns the user's current run snapshot.
func (s *Scheduler) State(userID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.currentLocked(userID)
	if r == nil {
		return Snapshot{Phase: PhaseIdle}
	}
	return s.snapshotOf(r)
}

// currentLocked returns the user's run after applying the lazy cooldown
// expiry. Callers must hold s.mu.
func (s *Scheduler) currentLocked(userID string) *run {
	r, ok := s.runs[userID]
	if !ok {
		return nil
	}
	if (r.phase == PhaseCooldown || r.phase == PhaseCompleted) && time.Now().After(r.cooldownUntil) {
		delete(s.runs, userID)
		return nil
	}
	return r
}

func (s *Scheduler) snapshotOf(r *run) Snapshot {
	snap := Snapshot{
		Phase:    r.phase,
		Symbol:   r.symbol,
		Progress: r.progress,
		Status:   r.status,
		Result:   r.result,
	}
	started := r.startedAt
	snap.StartedAt = &started
	if remaining := time.Until(r.cooldownUntil); remaining > 0 && r.phase != PhaseRunning {
		snap.CooldownRemaining = remaining.Seconds()
	}
	return snap
}

func (s *Scheduler) runLoop(ctx context.Context, userID string, r *run) {
	ticker := time.NewTicker(ProgressTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(r.startedAt)
			if elapsed >= r.total {
				s.complete(ctx, userID, r)
				return
			}

			progress := float64(elapsed) / float64(r.total) * 100
			if progress > 99 {
				progress = 99
			}

			s.mu.Lock()
			r.progress = progress
			r.status = statusLabel(progress, r.symbol)
			s.mu.Unlock()

			s.bus.Publish(events.Event{
				Type:      events.EventAnalysisProgress,
				UserID:    userID,
				Timestamp: time.Now(),
				Data:      map[string]interface{}{"progress": progress, "status": r.status},
			})
		}
	}
}

// complete performs the single engine invocation on the freshest series and
// moves the run into cooldown.
func (s *Scheduler) complete(ctx context.Context, userID string, r *run) {
	points, err := s.feed.Snapshot(r.symbol)
	if err != nil {
		points = nil
	}

	result := s.analyzer.Analyze(ctx, r.symbol, points, r.tier)

	cooldown := CooldownDuration
	if result.Confidence == 0 {
		// A zero-confidence result means no usable market data; the short
		// cooldown lets the user retry quickly.
		cooldown = ShortCooldown
		s.bus.Publish(events.Event{
			Type:      events.EventAnalysisFailed,
			UserID:    userID,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"symbol": r.symbol, "reason": "no market data available"},
		})
	}

	s.mu.Lock()
	r.progress = 100
	r.status = "Analysis complete"
	r.phase = PhaseCompleted
	r.result = &result
	r.cooldownUntil = time.Now().Add(cooldown)
	s.mu.Unlock()

	s.bus.PublishSignalGenerated(userID, r.symbol, string(result.Signal), result.Confidence)

	if result.Confidence > 0 && s.history != nil {
		if err := s.history.RecordResult(context.Background(), userID, result); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to persist analysis result")
			s.bus.PublishError("scheduler", err)
		}
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("symbol", r.symbol).
		Str("signal", string(result.Signal)).
		Int("confidence", result.Confidence).
		Dur("cooldown", cooldown).
		Msg("Analysis run completed")

	// Mark the cooldown phase after completion has been observable at least
	// once through State.
	time.AfterFunc(ProgressTick, func() {
		s.mu.Lock()
		if cur, ok := s.runs[userID]; ok && cur == r && r.phase == PhaseCompleted {
			r.phase = PhaseCooldown
		}
		s.mu.Unlock()
	})
}

// statusLabel maps run progress to the staged status text.
func statusLabel(progress float64, symbol string) string {
	switch {
	case progress < 15:
		return "Collecting order book and volume data..."
	case progress < 30:
		return "Analyzing " + symbol + " market structure..."
	case progress < 45:
		return "Computing technical indicators (RSI, EMA, MACD, Bollinger)..."
	case progress < 60:
		return "Detecting candle patterns and time fractals..."
	case progress < 75:
		return "Querying neural network and predictive models..."
	case progress < 90:
		return "Cross-checking global market sentiment..."
	default:
		return "Validating statistical probability and generating final signal..."
	}
}

func (s *Scheduler) randomDuration() time.Duration {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	spread := int64(MaxRunDuration - MinRunDuration)
	return MinRunDuration + time.Duration(s.rng.Int63n(spread+1))
}
