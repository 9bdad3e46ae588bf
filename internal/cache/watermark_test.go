package cache

import (
	"context"
	"testing"
	"time"
)

func TestWatermarkAdvanceMonotonic(t *testing.T) {
	store := NewWatermarkStore(nil)
	ctx := context.Background()

	if !store.Watermark(ctx, "u1").IsZero() {
		t.Fatal("expected zero watermark for a new user")
	}

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Advance(ctx, "u1", t1)
	if got := store.Watermark(ctx, "u1"); !got.Equal(t1) {
		t.Fatalf("expected watermark %v, got %v", t1, got)
	}

	// An earlier time must not move the watermark backward
	store.Advance(ctx, "u1", t1.Add(-time.Hour))
	if got := store.Watermark(ctx, "u1"); !got.Equal(t1) {
		t.Errorf("watermark moved backward to %v", got)
	}

	t2 := t1.Add(time.Hour)
	store.Advance(ctx, "u1", t2)
	if got := store.Watermark(ctx, "u1"); !got.Equal(t2) {
		t.Errorf("expected watermark %v, got %v", t2, got)
	}
}

func TestWatermarkIsolatedPerUser(t *testing.T) {
	store := NewWatermarkStore(nil)
	ctx := context.Background()

	store.Advance(ctx, "u1", time.Now())
	if !store.Watermark(ctx, "u2").IsZero() {
		t.Error("watermark leaked across users")
	}
}

func TestTamperFlagStickyUntilCleared(t *testing.T) {
	store := NewWatermarkStore(nil)
	ctx := context.Background()

	if store.IsTampered(ctx, "u1") {
		t.Fatal("new user must not start tampered")
	}

	store.MarkTampered(ctx, "u1")
	if !store.IsTampered(ctx, "u1") {
		t.Fatal("expected tamper flag raised")
	}
	if store.IsTampered(ctx, "u2") {
		t.Error("tamper flag leaked across users")
	}

	store.ClearTamper(ctx, "u1")
	if store.IsTampered(ctx, "u1") {
		t.Error("expected tamper flag cleared")
	}
}
