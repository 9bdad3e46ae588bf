// Package subscription owns every mutation of plan, credits and premium
// expiry. All writes go through versioned compare-and-swap against Postgres;
// a lost race is re-fetched and retried once, and a persistent failure
// surfaces as a SyncError rather than leaving local state diverged.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/logging"
)

// Sentinel errors for ledger operations.
var (
	// ErrInsufficientCredits means a free-tier user has no credits left in
	// the current window.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrAssetLocked means the requested asset requires a premium plan.
	ErrAssetLocked = errors.New("asset requires premium plan")

	// ErrProfileNotFound means the profile disappeared mid-operation.
	ErrProfileNotFound = errors.New("profile not found")
)

// SyncError wraps a remote persistence failure. The operation was aborted
// and no local state was kept ahead of the store.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed during %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether err is a SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}

// Ledger reconciles subscription state against wall-clock time and applies
// credit accounting.
type Ledger struct {
	repo   *database.Repository
	bus    *events.EventBus
	logger *logging.Logger

	freeCredits      int
	creditResetEvery time.Duration
	premiumGrantDays int
	freeAsset        string
}

// NewLedger creates a ledger from configuration.
func NewLedger(repo *database.Repository, cfg config.SubscriptionConfig, freeAsset string, bus *events.EventBus) *Ledger {
	return &Ledger{
		repo:             repo,
		bus:              bus,
		logger:           logging.WithComponent("subscription"),
		freeCredits:      cfg.FreeCredits,
		creditResetEvery: cfg.CreditResetEvery,
		premiumGrantDays: cfg.PremiumGrantDays,
		freeAsset:        freeAsset,
	}
}

// mutate applies fn to a fresh clone of the profile and writes it back with
// compare-and-swap. A version conflict is re-fetched and retried exactly
// once. Returns the stored profile on success.
//
// fn returns false to signal that no write is needed.
func (l *Ledger) mutate(ctx context.Context, op string, profile *database.UserProfile, fn func(*database.UserProfile) bool) (*database.UserProfile, error) {
	current := profile
	for attempt := 0; attempt < 2; attempt++ {
		updated := current.Clone()
		if !fn(updated) {
			return current, nil
		}

		err := l.repo.UpdateProfileCAS(ctx, updated)
		if err == nil {
			return updated, nil
		}
		if err != database.ErrVersionConflict {
			return nil, &SyncError{Op: op, Err: err}
		}

		fresh, ferr := l.repo.GetProfileByID(ctx, profile.ID)
		if ferr != nil {
			return nil, &SyncError{Op: op, Err: ferr}
		}
		if fresh == nil {
			return nil, ErrProfileNotFound
		}
		current = fresh
	}

	return nil, &SyncError{Op: op, Err: database.ErrVersionConflict}
}

// ReconcileOnLoad applies any pending expiry and credit reset to a freshly
// loaded profile, so a user who was away through a whole window still sees
// correct state at login.
func (l *Ledger) ReconcileOnLoad(ctx context.Context, profile *database.UserProfile) (*database.UserProfile, error) {
	reconciled, err := l.MaybeExpirePremium(ctx, profile)
	if err != nil {
		return nil, err
	}
	return l.MaybeResetCredits(ctx, reconciled)
}

// MaybeResetCredits restores the free credit quota when the reset window has
// elapsed. Premium profiles are untouched; their credit balance is dormant.
func (l *Ledger) MaybeResetCredits(ctx context.Context, profile *database.UserProfile) (*database.UserProfile, error) {
	now := time.Now()
	reset := false
	updated, err := l.mutate(ctx, "credit reset", profile, func(p *database.UserProfile) bool {
		reset = false
		if p.IsPremium() {
			return false
		}
		if now.Sub(p.LastCreditReset) < l.creditResetEvery {
			return false
		}
		p.Credits = l.freeCredits
		p.LastCreditReset = now
		reset = true
		return true
	})
	if err != nil {
		return nil, err
	}

	if reset {
		l.logger.WithField("user_id", profile.ID).Info("Credits restored")
		l.bus.PublishCreditsRestored(profile.ID, updated.Credits)
	}
	return updated, nil
}

// MaybeExpirePremium downgrades a premium profile whose expiry has passed.
// The downgrade also reverts a premium-only asset selection to the free
// asset and restores the free credit quota so the user can keep working.
func (l *Ledger) MaybeExpirePremium(ctx context.Context, profile *database.UserProfile) (*database.UserProfile, error) {
	now := time.Now()
	expired := false
	updated, err := l.mutate(ctx, "premium expiry", profile, func(p *database.UserProfile) bool {
		expired = false
		if !p.IsPremium() || p.PremiumExpiry == nil || now.Before(*p.PremiumExpiry) {
			return false
		}
		p.Plan = database.PlanFree
		p.PremiumExpiry = nil
		p.Credits = l.freeCredits
		p.LastCreditReset = now
		if p.SelectedAsset != l.freeAsset {
			p.SelectedAsset = l.freeAsset
		}
		expired = true
		return true
	})
	if err != nil {
		return nil, err
	}

	if expired {
		l.logger.WithField("user_id", profile.ID).Info("Premium expired, downgraded to free plan")
		l.bus.PublishPremiumExpired(profile.ID)
	}
	return updated, nil
}

// DeductCredit spends one credit ahead of an analysis run. Premium profiles
// bypass credit accounting entirely. The deduction is never refunded.
func (l *Ledger) DeductCredit(ctx context.Context, profile *database.UserProfile) (*database.UserProfile, error) {
	if profile.IsPremium() {
		return profile, nil
	}
	if profile.Credits <= 0 {
		return nil, ErrInsufficientCredits
	}

	deducted := false
	updated, err := l.mutate(ctx, "credit deduction", profile, func(p *database.UserProfile) bool {
		deducted = false
		if p.IsPremium() || p.Credits <= 0 {
			return false
		}
		p.Credits--
		deducted = true
		return true
	})
	if err != nil {
		return nil, err
	}
	if !deducted && !updated.IsPremium() {
		// The retry path saw a profile that was already out of credits
		return nil, ErrInsufficientCredits
	}

	l.bus.Publish(events.Event{
		Type:      events.EventCreditDeducted,
		UserID:    profile.ID,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"credits": updated.Credits},
	})
	return updated, nil
}

// ExtendPremium grants days of premium, stacking on top of any remaining
// time. The base is the later of now and the current expiry, so redeeming
// early never loses days.
func (l *Ledger) ExtendPremium(ctx context.Context, profile *database.UserProfile, days int) (*database.UserProfile, error) {
	if days <= 0 {
		days = l.premiumGrantDays
	}

	var newExpiry time.Time
	updated, err := l.mutate(ctx, "premium extension", profile, func(p *database.UserProfile) bool {
		base := time.Now()
		if p.PremiumExpiry != nil && p.PremiumExpiry.After(base) {
			base = *p.PremiumExpiry
		}
		newExpiry = base.AddDate(0, 0, days)
		p.Plan = database.PlanPremium
		p.PremiumExpiry = &newExpiry
		return true
	})
	if err != nil {
		return nil, err
	}

	l.logger.WithField("user_id", profile.ID).
		WithField("expiry", newExpiry.Format(time.RFC3339)).
		Info("Premium extended")
	l.bus.PublishPremiumActivated(profile.ID, newExpiry)
	return updated, nil
}

// SelectAsset changes the user's active asset. Non-free assets require a
// premium plan.
func (l *Ledger) SelectAsset(ctx context.Context, profile *database.UserProfile, symbol string) (*database.UserProfile, error) {
	if symbol != l.freeAsset && !profile.IsPremium() {
		return nil, ErrAssetLocked
	}

	return l.mutate(ctx, "asset selection", profile, func(p *database.UserProfile) bool {
		if symbol != l.freeAsset && !p.IsPremium() {
			return false
		}
		if p.SelectedAsset == symbol {
			return false
		}
		p.SelectedAsset = symbol
		return true
	})
}

// FreeAsset returns the always-available asset symbol.
func (l *Ledger) FreeAsset() string {
	return l.freeAsset
}
