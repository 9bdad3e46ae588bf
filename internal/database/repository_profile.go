package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// =====================================================
// USER PROFILE OPERATIONS
// =====================================================

// CreateProfile creates a new user profile with free-tier defaults.
func (r *Repository) CreateProfile(ctx context.Context, profile *UserProfile) error {
	query := `
		INSERT INTO user_profiles (
			email, password_hash, plan, credits, last_credit_reset, selected_asset
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		profile.Email,
		profile.PasswordHash,
		profile.Plan,
		profile.Credits,
		profile.LastCreditReset,
		profile.SelectedAsset,
	).Scan(&profile.ID, &profile.Version, &profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

const profileColumns = `
	id, email, password_hash, plan, premium_expiry, credits,
	last_credit_reset, selected_asset, version, created_at, updated_at`

func scanProfile(row pgx.Row) (*UserProfile, error) {
	profile := &UserProfile{}
	err := row.Scan(
		&profile.ID, &profile.Email, &profile.PasswordHash, &profile.Plan,
		&profile.PremiumExpiry, &profile.Credits, &profile.LastCreditReset,
		&profile.SelectedAsset, &profile.Version, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}
	return profile, nil
}

// GetProfileByID retrieves a profile by id. Returns (nil, nil) when absent.
func (r *Repository) GetProfileByID(ctx context.Context, userID string) (*UserProfile, error) {
	query := `SELECT` + profileColumns + ` FROM user_profiles WHERE id = $1`
	return scanProfile(r.db.Pool.QueryRow(ctx, query, userID))
}

// GetProfileByEmail retrieves a profile by email. Returns (nil, nil) when absent.
func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*UserProfile, error) {
	query := `SELECT` + profileColumns + ` FROM user_profiles WHERE email = $1`
	return scanProfile(r.db.Pool.QueryRow(ctx, query, email))
}

// UpdateProfileCAS writes the ledger-owned fields guarded by the version the
// caller read. On success the profile's version is advanced in place; when
// another writer got there first it returns ErrVersionConflict and the caller
// must re-fetch and retry.
func (r *Repository) UpdateProfileCAS(ctx context.Context, profile *UserProfile) error {
	query := `
		UPDATE user_profiles
		SET plan = $1, premium_expiry = $2, credits = $3, last_credit_reset = $4,
			selected_asset = $5, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6 AND version = $7
		RETURNING version, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		profile.Plan,
		profile.PremiumExpiry,
		profile.Credits,
		profile.LastCreditReset,
		profile.SelectedAsset,
		profile.ID,
		profile.Version,
	).Scan(&profile.Version, &profile.UpdatedAt)

	if err == pgx.ErrNoRows {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// EmailExists checks whether a profile already uses the email.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM user_profiles WHERE email = $1)`
	if err := r.db.Pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// ListExpiredPremiumProfiles returns premium profiles whose expiry has passed.
func (r *Repository) ListExpiredPremiumProfiles(ctx context.Context, now time.Time) ([]*UserProfile, error) {
	query := `SELECT` + profileColumns + `
		FROM user_profiles
		WHERE plan = $1 AND premium_expiry IS NOT NULL AND premium_expiry < $2`

	rows, err := r.db.Pool.Query(ctx, query, PlanPremium, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired premium profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*UserProfile
	for rows.Next() {
		profile := &UserProfile{}
		err := rows.Scan(
			&profile.ID, &profile.Email, &profile.PasswordHash, &profile.Plan,
			&profile.PremiumExpiry, &profile.Credits, &profile.LastCreditReset,
			&profile.SelectedAsset, &profile.Version, &profile.CreatedAt, &profile.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// ListResetDueProfiles returns profiles whose credit window has elapsed.
func (r *Repository) ListResetDueProfiles(ctx context.Context, cutoff time.Time) ([]*UserProfile, error) {
	query := `SELECT` + profileColumns + `
		FROM user_profiles
		WHERE last_credit_reset <= $1`

	rows, err := r.db.Pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list reset-due profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*UserProfile
	for rows.Next() {
		profile := &UserProfile{}
		err := rows.Scan(
			&profile.ID, &profile.Email, &profile.PasswordHash, &profile.Plan,
			&profile.PremiumExpiry, &profile.Credits, &profile.LastCreditReset,
			&profile.SelectedAsset, &profile.Version, &profile.CreatedAt, &profile.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}
