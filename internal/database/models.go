package database

import (
	"time"
)

// Plan is the subscription level stored on a profile.
type Plan string

const (
	PlanFree    Plan = "FREE"
	PlanPremium Plan = "PREMIUM"
)

// TradeOutcome is a user-reported result for a closed signal.
type TradeOutcome string

const (
	OutcomeWin  TradeOutcome = "WIN"
	OutcomeLoss TradeOutcome = "LOSS"
)

// UserProfile is the principal shared mutable resource: plan, credits and
// premium expiry, reconciled against wall-clock time. Mutated only through
// the subscription ledger; every write is a versioned compare-and-swap.
type UserProfile struct {
	ID              string     `json:"id" db:"id"`
	Email           string     `json:"email" db:"email"`
	PasswordHash    string     `json:"-" db:"password_hash"`
	Plan            Plan       `json:"plan" db:"plan"`
	PremiumExpiry   *time.Time `json:"premium_expiry" db:"premium_expiry"`
	Credits         int        `json:"credits" db:"credits"`
	LastCreditReset time.Time  `json:"last_credit_reset" db:"last_credit_reset"`
	SelectedAsset   string     `json:"selected_asset" db:"selected_asset"`
	Version         int64      `json:"version" db:"version"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPremium reports whether the profile currently holds the premium plan.
// Expiry reconciliation is the ledger's job; this only reads the stored plan.
func (p *UserProfile) IsPremium() bool {
	return p.Plan == PlanPremium
}

// Clone returns a copy of the profile for optimistic mutation.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	if p.PremiumExpiry != nil {
		expiry := *p.PremiumExpiry
		cp.PremiumExpiry = &expiry
	}
	return &cp
}

// PremiumCode is a one-time activation token. is_used transitions
// false -> true exactly once per code and never back.
type PremiumCode struct {
	ID        string     `json:"id" db:"id"`
	Code      string     `json:"code" db:"code"`
	IsUsed    bool       `json:"is_used" db:"is_used"`
	UsedBy    *string    `json:"used_by" db:"used_by"`
	UsedAt    *time.Time `json:"used_at" db:"used_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// HistoryItem is a persisted analysis result, optionally promoted with a
// self-reported outcome.
type HistoryItem struct {
	ID            string        `json:"id" db:"id"`
	UserID        string        `json:"user_id" db:"user_id"`
	Symbol        string        `json:"symbol" db:"symbol"`
	CurrentPrice  float64       `json:"current_price" db:"current_price"`
	Signal        string        `json:"signal" db:"signal"`
	Confidence    int           `json:"confidence" db:"confidence"`
	Trend         string        `json:"trend" db:"trend"`
	Patterns      []string      `json:"patterns" db:"patterns"`
	KeySupport    float64       `json:"key_support" db:"key_support"`
	KeyResistance float64       `json:"key_resistance" db:"key_resistance"`
	Reasoning     string        `json:"reasoning" db:"reasoning"`
	Outcome       *TradeOutcome `json:"outcome,omitempty" db:"outcome"`
	ClosedAt      *time.Time    `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// HistoryStats aggregates a user's recorded outcomes.
type HistoryStats struct {
	Total            int     `json:"total"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	CurrentStreak    int     `json:"current_streak"` // Positive = wins, negative = losses
	BestAsset        string  `json:"best_asset"`
	AvgWinConfidence float64 `json:"avg_win_confidence"`
}
