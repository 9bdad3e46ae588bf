package api

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := NewRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !limiter.Allow("/api/test") {
			t.Fatalf("request %d unexpectedly rejected", i+1)
		}
	}
	if limiter.Allow("/api/test") {
		t.Error("request over the limit must be rejected")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	if !limiter.Allow("/api/a") {
		t.Fatal("first request to /api/a rejected")
	}
	if !limiter.Allow("/api/b") {
		t.Error("a full window on one key must not affect another")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewRateLimiter(1, 50*time.Millisecond)

	if !limiter.Allow("/api/test") {
		t.Fatal("first request rejected")
	}
	if limiter.Allow("/api/test") {
		t.Fatal("second request inside the window must be rejected")
	}

	time.Sleep(60 * time.Millisecond)
	if !limiter.Allow("/api/test") {
		t.Error("request after window expiry must be allowed")
	}
}

func TestAllowedOrigins(t *testing.T) {
	defaults := allowedOrigins("")
	if len(defaults) != 2 {
		t.Errorf("expected 2 default origins, got %v", defaults)
	}

	custom := allowedOrigins("https://app.example.com, https://staging.example.com ,")
	if len(custom) != 2 {
		t.Fatalf("expected 2 parsed origins, got %v", custom)
	}
	if custom[0] != "https://app.example.com" || custom[1] != "https://staging.example.com" {
		t.Errorf("unexpected origins %v", custom)
	}
}
