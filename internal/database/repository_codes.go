package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// =====================================================
// PREMIUM CODE OPERATIONS
// =====================================================

// CreateCode inserts a new unused activation code.
func (r *Repository) CreateCode(ctx context.Context, code string) (*PremiumCode, error) {
	query := `
		INSERT INTO premium_codes (code)
		VALUES ($1)
		RETURNING id, code, is_used, used_by, used_at, created_at
	`

	pc := &PremiumCode{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&pc.ID, &pc.Code, &pc.IsUsed, &pc.UsedBy, &pc.UsedAt, &pc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code: %w", err)
	}

	return pc, nil
}

// GetCodeByValue retrieves a code row. Returns (nil, nil) when absent.
func (r *Repository) GetCodeByValue(ctx context.Context, code string) (*PremiumCode, error) {
	query := `
		SELECT id, code, is_used, used_by, used_at, created_at
		FROM premium_codes WHERE code = $1
	`

	pc := &PremiumCode{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&pc.ID, &pc.Code, &pc.IsUsed, &pc.UsedBy, &pc.UsedAt, &pc.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get code: %w", err)
	}

	return pc, nil
}

// ConsumeCode marks a code used in a single conditional update. The
// is_used = FALSE guard makes check-then-set atomic: of two concurrent
// redeemers exactly one gets the row, the other gets ErrCodeConsumed.
func (r *Repository) ConsumeCode(ctx context.Context, code, usedBy string, usedAt time.Time) (*PremiumCode, error) {
	query := `
		UPDATE premium_codes
		SET is_used = TRUE, used_by = $2, used_at = $3
		WHERE code = $1 AND is_used = FALSE
		RETURNING id, code, is_used, used_by, used_at, created_at
	`

	pc := &PremiumCode{}
	err := r.db.Pool.QueryRow(ctx, query, code, usedBy, usedAt).Scan(
		&pc.ID, &pc.Code, &pc.IsUsed, &pc.UsedBy, &pc.UsedAt, &pc.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrCodeConsumed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume code: %w", err)
	}

	return pc, nil
}

// ListUnusedCodes returns unused codes for the operator CLI.
func (r *Repository) ListUnusedCodes(ctx context.Context, limit int) ([]*PremiumCode, error) {
	query := `
		SELECT id, code, is_used, used_by, used_at, created_at
		FROM premium_codes
		WHERE is_used = FALSE
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	defer rows.Close()

	var codes []*PremiumCode
	for rows.Next() {
		pc := &PremiumCode{}
		if err := rows.Scan(&pc.ID, &pc.Code, &pc.IsUsed, &pc.UsedBy, &pc.UsedAt, &pc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan code row: %w", err)
		}
		codes = append(codes, pc)
	}

	return codes, rows.Err()
}
