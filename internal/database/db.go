package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		// User profiles: the subscription ledger's single source of truth.
		// version backs the compare-and-swap update path.
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			plan VARCHAR(10) NOT NULL DEFAULT 'FREE',
			premium_expiry TIMESTAMPTZ,
			credits INTEGER NOT NULL DEFAULT 15 CHECK (credits >= 0),
			last_credit_reset TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			selected_asset VARCHAR(20) NOT NULL DEFAULT 'BTC/USD',
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_profiles_email ON user_profiles(email)`,
		`CREATE INDEX IF NOT EXISTS idx_user_profiles_plan ON user_profiles(plan)`,

		// Premium activation codes. is_used transitions false -> true exactly
		// once; the consume statement is guarded by is_used = FALSE.
		`CREATE TABLE IF NOT EXISTS premium_codes (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			code VARCHAR(30) UNIQUE NOT NULL,
			is_used BOOLEAN NOT NULL DEFAULT FALSE,
			used_by VARCHAR(255),
			used_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_premium_codes_code ON premium_codes(code)`,

		// Analysis history: one row per completed cycle, optionally promoted
		// with a self-reported outcome.
		`CREATE TABLE IF NOT EXISTS analysis_history (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			symbol VARCHAR(20) NOT NULL,
			current_price DECIMAL(20, 8) NOT NULL,
			signal VARCHAR(4) NOT NULL,
			confidence INTEGER NOT NULL,
			trend VARCHAR(10) NOT NULL,
			patterns TEXT NOT NULL DEFAULT '[]',
			key_support DECIMAL(20, 8),
			key_resistance DECIMAL(20, 8),
			reasoning TEXT,
			outcome VARCHAR(4),
			closed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_history_user ON analysis_history(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_history_symbol ON analysis_history(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_history_created ON analysis_history(created_at)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed")
	return nil
}
