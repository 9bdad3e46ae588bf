package database

import (
	"context"
	"errors"
)

// Repository provides access to all persisted data
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck verifies database connectivity
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.Pool.Ping(ctx)
}

// Sentinel errors shared by the repositories.
var (
	// ErrVersionConflict means a compare-and-swap write lost the race; the
	// caller must re-fetch the row and retry.
	ErrVersionConflict = errors.New("profile version conflict")

	// ErrCodeConsumed means the conditional code update matched no rows
	// because the code was already used.
	ErrCodeConsumed = errors.New("code already consumed")
)
