// Package history persists completed analyses and the user's self-reported
// trade outcomes, and aggregates them into performance stats.
package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/logging"
	"vertx-trading/internal/signal"
)

// Sentinel errors.
var (
	// ErrNotFound means the history item does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("history item not found")

	// ErrOutcomeRecorded means the item already carries an outcome.
	ErrOutcomeRecorded = errors.New("outcome already recorded")

	// ErrInvalidOutcome means the outcome value is not WIN or LOSS.
	ErrInvalidOutcome = errors.New("outcome must be WIN or LOSS")
)

// Service owns the analysis history of every user.
type Service struct {
	repo   *database.Repository
	bus    *events.EventBus
	logger *logging.Logger
}

// NewService creates the history service.
func NewService(repo *database.Repository, bus *events.EventBus) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		logger: logging.WithComponent("history"),
	}
}

// RecordResult persists a completed analysis for the user.
func (s *Service) RecordResult(ctx context.Context, userID string, result signal.AnalysisResult) error {
	item := &database.HistoryItem{
		ID:            result.ID,
		UserID:        userID,
		Symbol:        result.Symbol,
		CurrentPrice:  result.CurrentPrice,
		Signal:        string(result.Signal),
		Confidence:    result.Confidence,
		Trend:         string(result.Trend),
		Patterns:      result.PatternsDetected,
		KeySupport:    result.KeySupport,
		KeyResistance: result.KeyResistance,
		Reasoning:     result.Reasoning,
	}

	if err := s.repo.InsertAnalysis(ctx, item); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}
	return nil
}

// RecordOutcome promotes a result with a WIN or LOSS exactly once.
func (s *Service) RecordOutcome(ctx context.Context, userID, resultID string, outcome database.TradeOutcome) error {
	if outcome != database.OutcomeWin && outcome != database.OutcomeLoss {
		return ErrInvalidOutcome
	}

	// Distinguish a missing row from an already-promoted one so the API can
	// return 404 vs 409.
	existing, err := s.repo.GetHistoryItem(ctx, resultID, userID)
	if err != nil {
		return fmt.Errorf("failed to load history item: %w", err)
	}
	if existing == nil {
		return ErrNotFound
	}
	if existing.Outcome != nil {
		return ErrOutcomeRecorded
	}

	if err := s.repo.RecordOutcome(ctx, resultID, userID, outcome, time.Now()); err != nil {
		if err == pgx.ErrNoRows {
			return ErrOutcomeRecorded
		}
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	s.bus.Publish(events.Event{
		Type:      events.EventOutcomeRecorded,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"result_id": resultID, "outcome": string(outcome)},
	})
	return nil
}

// List returns the user's history, optionally filtered by symbol and
// outcome ("WIN", "LOSS" or empty).
func (s *Service) List(ctx context.Context, userID, symbol, outcome string, limit int) ([]*database.HistoryItem, error) {
	var outcomeFilter *database.TradeOutcome
	switch outcome {
	case "":
	case string(database.OutcomeWin), string(database.OutcomeLoss):
		o := database.TradeOutcome(outcome)
		outcomeFilter = &o
	default:
		return nil, ErrInvalidOutcome
	}

	items, err := s.repo.ListHistory(ctx, userID, symbol, outcomeFilter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return items, nil
}

// Delete removes one history item owned by the user.
func (s *Service) Delete(ctx context.Context, userID, resultID string) error {
	if err := s.repo.DeleteHistoryItem(ctx, resultID, userID); err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete history item: %w", err)
	}
	return nil
}

// Clear removes the user's entire history and returns the deleted count.
func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.repo.ClearHistory(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.WithField("user_id", userID).WithField("deleted", deleted).Info("History cleared")
	return deleted, nil
}

// Stats aggregates the user's recorded outcomes.
func (s *Service) Stats(ctx context.Context, userID string) (*database.HistoryStats, error) {
	stats, err := s.repo.GetHistoryStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// ExportCSV writes the user's full history as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) error {
	items, err := s.repo.ListHistory(ctx, userID, "", nil, 0)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"id", "symbol", "price", "signal", "confidence", "trend",
		"patterns", "support", "resistance", "outcome", "closed_at", "created_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, item := range items {
		outcome := ""
		if item.Outcome != nil {
			outcome = string(*item.Outcome)
		}
		closedAt := ""
		if item.ClosedAt != nil {
			closedAt = item.ClosedAt.Format(time.RFC3339)
		}

		row := []string{
			item.ID,
			item.Symbol,
			strconv.FormatFloat(item.CurrentPrice, 'f', 2, 64),
			item.Signal,
			strconv.Itoa(item.Confidence),
			item.Trend,
			strings.Join(item.Patterns, "|"),
			strconv.FormatFloat(item.KeySupport, 'f', 2, 64),
			strconv.FormatFloat(item.KeyResistance, 'f', 2, 64),
			outcome,
			closedAt,
			item.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
