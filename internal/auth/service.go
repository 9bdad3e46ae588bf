package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/logging"
)

// Service handles registration, login and token issuance. New profiles start
// on the free plan with the configured credit quota.
type Service struct {
	repo      *database.Repository
	jwt       *JWTManager
	passwords *PasswordManager
	bus       *events.EventBus
	logger    *logging.Logger

	freeCredits  int
	defaultAsset string
}

// NewService creates the auth service.
func NewService(repo *database.Repository, cfg config.AuthConfig, subCfg config.SubscriptionConfig, defaultAsset string, bus *events.EventBus) *Service {
	return &Service{
		repo:         repo,
		jwt:          NewJWTManager(cfg.JWTSecret, cfg.AccessTokenDuration),
		passwords:    NewPasswordManager(cfg.BcryptCost, cfg.MinPasswordLength),
		bus:          bus,
		logger:       logging.WithComponent("auth"),
		freeCredits:  subCfg.FreeCredits,
		defaultAsset: defaultAsset,
	}
}

// JWT exposes the token manager for middleware wiring.
func (s *Service) JWT() *JWTManager {
	return s.jwt
}

// Register creates a new free-tier profile and returns a login response.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.passwords.ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := s.passwords.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	profile := &database.UserProfile{
		Email:           email,
		PasswordHash:    hash,
		Plan:            database.PlanFree,
		Credits:         s.freeCredits,
		LastCreditReset: time.Now(),
		SelectedAsset:   s.defaultAsset,
	}

	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.WithField("user_id", profile.ID).Info("User registered")
	s.bus.Publish(events.Event{
		Type:      events.EventUserRegistered,
		UserID:    profile.ID,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"email": profile.Email},
	})

	return s.loginResponse(profile)
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	profile, err := s.repo.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile == nil {
		// Burn a hash comparison so missing and wrong-password paths cost the same
		s.passwords.VerifyPassword(req.Password, "$2a$12$invalidinvalidinvalidinvalidinvalidinvalid")
		return nil, ErrInvalidCredentials
	}

	if !s.passwords.VerifyPassword(req.Password, profile.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.loginResponse(profile)
}

// Profile returns the current profile for an authenticated user.
func (s *Service) Profile(ctx context.Context, userID string) (*database.UserProfile, error) {
	profile, err := s.repo.GetProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	return profile, nil
}

func (s *Service) loginResponse(profile *database.UserProfile) (*LoginResponse, error) {
	token, err := s.jwt.GenerateAccessToken(UserClaims{
		UserID: profile.ID,
		Email:  profile.Email,
		Plan:   string(profile.Plan),
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		User:        NewProfileResponse(profile),
		AccessToken: token,
		ExpiresIn:   s.jwt.GetAccessTokenDuration(),
	}, nil
}
