package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	// Low cost keeps the test fast; production uses DefaultBcryptCost
	pm := NewPasswordManager(bcrypt.MinCost, MinPasswordLength)

	hash, err := pm.HashPassword("Str0ng!pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Str0ng!pass" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !pm.VerifyPassword("Str0ng!pass", hash) {
		t.Error("expected correct password to verify")
	}
	if pm.VerifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

func TestHashPasswordTooLong(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost, MinPasswordLength)

	if _, err := pm.HashPassword(strings.Repeat("a", MaxPasswordLength+1)); err == nil {
		t.Error("expected error for oversized password")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost, MinPasswordLength)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"three classes upper lower digit", "Abcdef12", false},
		{"three classes lower digit special", "abcdef1!", false},
		{"all four classes", "Abcdef1!", false},
		{"too short", "Ab1!", true},
		{"only lowercase", "abcdefgh", true},
		{"two classes", "abcdefg1", true},
		{"too long", strings.Repeat("Ab1!", 40), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pm.ValidatePasswordStrength(tt.password)
			if tt.wantErr && err == nil {
				t.Errorf("expected %q rejected", tt.password)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected %q accepted, got %v", tt.password, err)
			}
		})
	}
}

func TestWeakPasswordSentinel(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost, MinPasswordLength)

	if err := pm.ValidatePasswordStrength("abcdefgh"); err != ErrWeakPassword {
		t.Errorf("expected ErrWeakPassword, got %v", err)
	}
}
