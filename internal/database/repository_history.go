package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// =====================================================
// ANALYSIS HISTORY OPERATIONS
// =====================================================

// InsertAnalysis persists a completed analysis result for a user.
func (r *Repository) InsertAnalysis(ctx context.Context, item *HistoryItem) error {
	patterns, err := json.Marshal(item.Patterns)
	if err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}

	query := `
		INSERT INTO analysis_history (
			id, user_id, symbol, current_price, signal, confidence, trend,
			patterns, key_support, key_resistance, reasoning
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err = r.db.Pool.QueryRow(ctx, query,
		item.ID, item.UserID, item.Symbol, item.CurrentPrice, item.Signal,
		item.Confidence, item.Trend, string(patterns), item.KeySupport,
		item.KeyResistance, item.Reasoning,
	).Scan(&item.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}

	return nil
}

// RecordOutcome attaches a self-reported WIN/LOSS to an analysis. The
// outcome IS NULL guard keeps the log append-only: a result is promoted at
// most once.
func (r *Repository) RecordOutcome(ctx context.Context, id, userID string, outcome TradeOutcome, closedAt time.Time) error {
	query := `
		UPDATE analysis_history
		SET outcome = $3, closed_at = $4
		WHERE id = $1 AND user_id = $2 AND outcome IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, userID, outcome, closedAt)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func scanHistoryRows(rows pgx.Rows) ([]*HistoryItem, error) {
	var items []*HistoryItem
	for rows.Next() {
		item := &HistoryItem{}
		var patterns string
		err := rows.Scan(
			&item.ID, &item.UserID, &item.Symbol, &item.CurrentPrice,
			&item.Signal, &item.Confidence, &item.Trend, &patterns,
			&item.KeySupport, &item.KeyResistance, &item.Reasoning,
			&item.Outcome, &item.ClosedAt, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(patterns), &item.Patterns); err != nil {
			item.Patterns = nil
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetHistoryItem retrieves one history row owned by the user. Returns
// (nil, nil) when absent.
func (r *Repository) GetHistoryItem(ctx context.Context, id, userID string) (*HistoryItem, error) {
	query := `
		SELECT id, user_id, symbol, current_price, signal, confidence, trend,
			patterns, key_support, key_resistance, COALESCE(reasoning, ''),
			outcome, closed_at, created_at
		FROM analysis_history
		WHERE id = $1 AND user_id = $2
	`

	item := &HistoryItem{}
	var patterns string
	err := r.db.Pool.QueryRow(ctx, query, id, userID).Scan(
		&item.ID, &item.UserID, &item.Symbol, &item.CurrentPrice,
		&item.Signal, &item.Confidence, &item.Trend, &patterns,
		&item.KeySupport, &item.KeyResistance, &item.Reasoning,
		&item.Outcome, &item.ClosedAt, &item.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history item: %w", err)
	}
	if err := json.Unmarshal([]byte(patterns), &item.Patterns); err != nil {
		item.Patterns = nil
	}
	return item, nil
}

// ListHistory returns a user's history, newest first. Empty filter values
// match everything.
func (r *Repository) ListHistory(ctx context.Context, userID, symbol string, outcome *TradeOutcome, limit int) ([]*HistoryItem, error) {
	query := `
		SELECT id, user_id, symbol, current_price, signal, confidence, trend,
			patterns, key_support, key_resistance, COALESCE(reasoning, ''),
			outcome, closed_at, created_at
		FROM analysis_history
		WHERE user_id = $1
			AND ($2 = '' OR symbol = $2)
			AND ($3::varchar IS NULL OR outcome = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`

	if limit <= 0 {
		limit = 200
	}

	rows, err := r.db.Pool.Query(ctx, query, userID, symbol, outcome, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// DeleteHistoryItem removes a single history row owned by the user.
func (r *Repository) DeleteHistoryItem(ctx context.Context, id, userID string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM analysis_history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete history item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ClearHistory removes all history rows owned by the user.
func (r *Repository) ClearHistory(ctx context.Context, userID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM analysis_history WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetHistoryStats aggregates recorded outcomes for a user.
func (r *Repository) GetHistoryStats(ctx context.Context, userID string) (*HistoryStats, error) {
	stats := &HistoryStats{}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE outcome IS NOT NULL),
			COUNT(*) FILTER (WHERE outcome = 'WIN'),
			COUNT(*) FILTER (WHERE outcome = 'LOSS'),
			COALESCE(AVG(confidence) FILTER (WHERE outcome = 'WIN'), 0)
		FROM analysis_history
		WHERE user_id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&stats.Total, &stats.Wins, &stats.Losses, &stats.AvgWinConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate history: %w", err)
	}

	if stats.Total > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.Total) * 100
	}

	// Best asset by wins
	bestQuery := `
		SELECT symbol FROM analysis_history
		WHERE user_id = $1 AND outcome = 'WIN'
		GROUP BY symbol
		ORDER BY COUNT(*) DESC
		LIMIT 1
	`
	err = r.db.Pool.QueryRow(ctx, bestQuery, userID).Scan(&stats.BestAsset)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to find best asset: %w", err)
	}

	// Current streak: walk recorded outcomes newest first
	streakQuery := `
		SELECT outcome FROM analysis_history
		WHERE user_id = $1 AND outcome IS NOT NULL
		ORDER BY closed_at DESC
		LIMIT 50
	`
	rows, err := r.db.Pool.Query(ctx, streakQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read outcome streak: %w", err)
	}
	defer rows.Close()

	var outcomes []TradeOutcome
	for rows.Next() {
		var o TradeOutcome
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, o := range outcomes {
		if i == 0 {
			if o == OutcomeWin {
				stats.CurrentStreak = 1
			} else {
				stats.CurrentStreak = -1
			}
			continue
		}
		if o == outcomes[0] {
			if o == OutcomeWin {
				stats.CurrentStreak++
			} else {
				stats.CurrentStreak--
			}
		} else {
			break
		}
	}

	return stats, nil
}
