package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	claims := UserClaims{UserID: "user-1", Email: "trader@example.com", Plan: "PREMIUM"}
	token, err := manager.GenerateAccessToken(claims)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	parsed, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if parsed.UserID != claims.UserID || parsed.Email != claims.Email || parsed.Plan != claims.Plan {
		t.Errorf("claims mismatch: got %+v, want %+v", parsed, claims)
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)
	other := NewJWTManager("different-secret", 15*time.Minute)

	token, err := manager.GenerateAccessToken(UserClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := other.ValidateAccessToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	manager := NewJWTManager("test-secret", -time.Minute)

	token, err := manager.GenerateAccessToken(UserClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateAccessTokenGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	if _, err := manager.ValidateAccessToken("not-a-token"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for malformed input, got %v", err)
	}
}

func TestGetAccessTokenDuration(t *testing.T) {
	manager := NewJWTManager("test-secret", 15*time.Minute)

	if got := manager.GetAccessTokenDuration(); got != 900 {
		t.Errorf("expected 900 seconds, got %d", got)
	}
}
