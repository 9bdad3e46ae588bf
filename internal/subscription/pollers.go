package subscription

import (
	"context"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/database"
	"vertx-trading/internal/logging"
)

// TamperChecker gates ledger writes on the integrity registry. A user whose
// tamper flag is raised gets no background reconciliation until a clean
// check clears it.
type TamperChecker interface {
	IsTampered(ctx context.Context, userID string) bool
}

// Pollers runs the two background reconciliation loops. The credit loop
// walks reset-due profiles on a slow cadence; the expiry loop checks
// overdue premium profiles on a fast one so downgrades land within about a
// second of the deadline.
type Pollers struct {
	ledger *Ledger
	repo   *database.Repository
	tamper TamperChecker
	logger *logging.Logger

	creditPollInterval time.Duration
	expiryPollInterval time.Duration
	creditResetEvery   time.Duration
}

// NewPollers creates the reconciliation pollers.
func NewPollers(ledger *Ledger, repo *database.Repository, cfg config.SubscriptionConfig, tamper TamperChecker) *Pollers {
	return &Pollers{
		ledger:             ledger,
		repo:               repo,
		tamper:             tamper,
		logger:             logging.WithComponent("subscription-pollers"),
		creditPollInterval: cfg.CreditPollInterval,
		expiryPollInterval: cfg.ExpiryPollInterval,
		creditResetEvery:   cfg.CreditResetEvery,
	}
}

// Start launches both loops. They stop when ctx is canceled.
func (p *Pollers) Start(ctx context.Context) {
	go p.creditLoop(ctx)
	go p.expiryLoop(ctx)
	p.logger.Info("Subscription pollers started")
}

func (p *Pollers) creditLoop(ctx context.Context) {
	ticker := time.NewTicker(p.creditPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCreditPass(ctx)
		}
	}
}

func (p *Pollers) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(p.expiryPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runExpiryPass(ctx)
		}
	}
}

func (p *Pollers) runCreditPass(ctx context.Context) {
	cutoff := time.Now().Add(-p.creditResetEvery)
	profiles, err := p.repo.ListResetDueProfiles(ctx, cutoff)
	if err != nil {
		p.logger.WithError(err).Error("Credit pass failed to list profiles")
		return
	}

	for _, profile := range profiles {
		if ctx.Err() != nil {
			return
		}
		if p.tamper.IsTampered(ctx, profile.ID) {
			continue
		}
		if _, err := p.ledger.MaybeResetCredits(ctx, profile); err != nil {
			p.logger.WithError(err).WithField("user_id", profile.ID).Error("Credit reset failed")
		}
	}
}

func (p *Pollers) runExpiryPass(ctx context.Context) {
	profiles, err := p.repo.ListExpiredPremiumProfiles(ctx, time.Now())
	if err != nil {
		p.logger.WithError(err).Error("Expiry pass failed to list profiles")
		return
	}

	for _, profile := range profiles {
		if ctx.Err() != nil {
			return
		}
		if p.tamper.IsTampered(ctx, profile.ID) {
			continue
		}
		if _, err := p.ledger.MaybeExpirePremium(ctx, profile); err != nil {
			p.logger.WithError(err).WithField("user_id", profile.ID).Error("Premium expiry failed")
		}
	}
}
