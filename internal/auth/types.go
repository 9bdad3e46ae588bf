package auth

import (
	"time"

	"vertx-trading/internal/database"
)

// UserClaims represents the JWT claims for a user
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Plan   string `json:"plan"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User        ProfileResponse `json:"user"`
	AccessToken string          `json:"access_token"`
	ExpiresIn   int64           `json:"expires_in"`
}

// ProfileResponse represents profile data returned to the client
type ProfileResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Plan          string     `json:"plan"`
	Credits       int        `json:"credits"`
	PremiumExpiry *time.Time `json:"premium_expiry,omitempty"`
	SelectedAsset string     `json:"selected_asset"`
	CreatedAt     time.Time  `json:"created_at"`
}

// NewProfileResponse maps a stored profile to its client view.
func NewProfileResponse(p *database.UserProfile) ProfileResponse {
	return ProfileResponse{
		ID:            p.ID,
		Email:         p.Email,
		Plan:          string(p.Plan),
		Credits:       p.Credits,
		PremiumExpiry: p.PremiumExpiry,
		SelectedAsset: p.SelectedAsset,
		CreatedAt:     p.CreatedAt,
	}
}

// Error types for authentication
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrInvalidCredentials = AuthError{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}
	ErrUserNotFound       = AuthError{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrEmailExists        = AuthError{Code: "EMAIL_EXISTS", Message: "email already registered"}
	ErrInvalidToken       = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired       = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized       = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
	ErrWeakPassword       = AuthError{Code: "WEAK_PASSWORD", Message: "password does not meet requirements"}
)
