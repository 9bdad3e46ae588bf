// Package redemption handles one-time premium activation codes. A code is
// consumed with a single conditional update so concurrent redeemers cannot
// both win, and a consumed code is never rolled back: if the premium grant
// fails after consumption the failure is surfaced and resolved out of band.
package redemption

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"vertx-trading/internal/database"
	"vertx-trading/internal/logging"
	"vertx-trading/internal/subscription"
)

// Code format: VERTX-TRAD-XXXX-XXXX-30, where X is an uppercase letter or
// digit. The trailing 30 is the granted premium duration in days.
var codePattern = regexp.MustCompile(`^VERTX-TRAD-[A-Z0-9]{4}-[A-Z0-9]{4}-30$`)

// GrantDays is the premium duration carried by every well-formed code.
const GrantDays = 30

// Sentinel errors for redemption.
var (
	ErrInvalidFormat   = errors.New("code format is invalid")
	ErrCodeNotFound    = errors.New("code not found")
	ErrCodeAlreadyUsed = errors.New("code already used")
)

// Service redeems premium codes against the subscription ledger.
type Service struct {
	repo   *database.Repository
	ledger *subscription.Ledger
}

// NewService creates the redemption service.
func NewService(repo *database.Repository, ledger *subscription.Ledger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
	}
}

// ValidateFormat checks a code against the expected pattern without touching
// storage.
func ValidateFormat(code string) error {
	if !codePattern.MatchString(code) {
		return ErrInvalidFormat
	}
	return nil
}

// Redeem validates, consumes and applies a premium code for the user. The
// steps are ordered so each failure mode maps to exactly one error:
// malformed codes never reach storage, unknown codes never consume anything,
// and the conditional consume admits exactly one winner. A grant failure
// after the consume returns a SyncError with the code left consumed.
func (s *Service) Redeem(ctx context.Context, code string, profile *database.UserProfile) (*database.UserProfile, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if err := ValidateFormat(code); err != nil {
		return nil, err
	}

	stored, err := s.repo.GetCodeByValue(ctx, code)
	if err != nil {
		return nil, &subscription.SyncError{Op: "code lookup", Err: err}
	}
	if stored == nil {
		return nil, ErrCodeNotFound
	}
	if stored.IsUsed {
		return nil, ErrCodeAlreadyUsed
	}

	if _, err := s.repo.ConsumeCode(ctx, code, profile.ID, time.Now()); err != nil {
		if err == database.ErrCodeConsumed {
			return nil, ErrCodeAlreadyUsed
		}
		return nil, &subscription.SyncError{Op: "code consume", Err: err}
	}

	updated, err := s.ledger.ExtendPremium(ctx, profile, GrantDays)
	if err != nil {
		// The code stays consumed. Reverting it would open a replay window;
		// support resolves the stranded grant instead.
		logging.FromContext(ctx).WithComponent("redemption").
			WithError(err).
			WithField("user_id", profile.ID).
			WithField("code", code).
			Error("Premium grant failed after code consume")
		if subscription.IsSyncError(err) {
			return nil, err
		}
		return nil, &subscription.SyncError{Op: "premium grant", Err: err}
	}

	logging.FromContext(ctx).WithComponent("redemption").
		WithField("user_id", profile.ID).
		WithField("code", code).
		Info("Code redeemed")
	return updated, nil
}
