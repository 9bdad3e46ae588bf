package integrity

import (
	"context"
	"errors"
	"testing"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/cache"
	"vertx-trading/internal/events"
)

type fakeClock struct {
	now time.Time
	err error
}

func (f *fakeClock) Now(ctx context.Context) (time.Time, error) {
	return f.now, f.err
}

func newTestMonitor(t *testing.T, clock Clock) (*Monitor, *cache.WatermarkStore) {
	t.Helper()
	store := cache.NewWatermarkStore(nil)
	monitor := NewMonitor(config.IntegrityConfig{
		Tolerance:    5 * time.Minute,
		ProbeTimeout: time.Second,
	}, store, events.NewEventBus())
	monitor.SetClock(clock)
	return monitor, store
}

func TestCheckCleanAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	monitor, store := newTestMonitor(t, &fakeClock{now: now})

	result := monitor.Check(ctx, "u1", now)

	if result.Status != StatusOK || result.Tampered {
		t.Fatalf("expected clean check, got %+v", result)
	}
	if got := store.Watermark(ctx, "u1"); !got.Equal(now) {
		t.Errorf("expected watermark advanced to %v, got %v", now, got)
	}
}

func TestCheckBackwardMovement(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	monitor, store := newTestMonitor(t, &fakeClock{now: now})

	monitor.Check(ctx, "u1", now)

	// Ten minutes behind the watermark, well past the five minute tolerance
	result := monitor.Check(ctx, "u1", now.Add(-10*time.Minute))

	if result.Status != StatusTamperedBackward {
		t.Fatalf("expected TAMPERED_BACKWARD, got %s", result.Status)
	}
	if !result.Tampered {
		t.Error("expected tampered result")
	}
	if !monitor.IsTampered(ctx, "u1") {
		t.Error("expected tamper flag raised")
	}
	if got := store.Watermark(ctx, "u1"); !got.Equal(now) {
		t.Errorf("failed check must not move the watermark, got %v", got)
	}
}

func TestCheckBackwardWithinTolerance(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	monitor, _ := newTestMonitor(t, &fakeClock{now: now})

	monitor.Check(ctx, "u1", now)

	// Two minutes behind the watermark stays inside the tolerance
	result := monitor.Check(ctx, "u1", now.Add(-2*time.Minute))

	if result.Status != StatusOK {
		t.Errorf("expected OK within tolerance, got %s", result.Status)
	}
	if monitor.IsTampered(ctx, "u1") {
		t.Error("tamper flag must not be raised within tolerance")
	}
}

func TestCheckOffsetTamper(t *testing.T) {
	ctx := context.Background()
	ref := time.Now()
	monitor, _ := newTestMonitor(t, &fakeClock{now: ref})

	tests := []struct {
		name   string
		device time.Time
	}{
		{"device ahead", ref.Add(10 * time.Minute)},
		{"device behind", ref.Add(-10 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := "offset-" + tt.name
			result := monitor.Check(ctx, userID, tt.device)

			if result.Status != StatusTamperedOffset {
				t.Fatalf("expected TAMPERED_OFFSET, got %s", result.Status)
			}
			if !monitor.IsTampered(ctx, userID) {
				t.Error("expected tamper flag raised")
			}
		})
	}
}

func TestCheckProbeFailureFailsOpen(t *testing.T) {
	ctx := context.Background()
	monitor, store := newTestMonitor(t, &fakeClock{err: errors.New("probe down")})

	device := time.Now()
	result := monitor.Check(ctx, "u1", device)

	if result.Status != StatusOK || result.Tampered {
		t.Fatalf("probe failure must not fail the check, got %+v", result)
	}
	if got := store.Watermark(ctx, "u1"); !got.Equal(device) {
		t.Errorf("expected watermark advanced despite probe failure, got %v", got)
	}
}

func TestCheckDisabledProbeFailsOpen(t *testing.T) {
	ctx := context.Background()
	monitor, _ := newTestMonitor(t, &fakeClock{err: ErrProbeDisabled})

	if result := monitor.Check(ctx, "u1", time.Now()); result.Status != StatusOK {
		t.Errorf("disabled probe must not fail the check, got %s", result.Status)
	}
}

func TestCheckCleanPassClearsTamper(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	monitor, _ := newTestMonitor(t, &fakeClock{now: now})

	monitor.Check(ctx, "u1", now)
	monitor.Check(ctx, "u1", now.Add(-10*time.Minute))
	if !monitor.IsTampered(ctx, "u1") {
		t.Fatal("expected tamper flag raised after backward check")
	}

	result := monitor.Check(ctx, "u1", now.Add(time.Minute))
	if result.Status != StatusOK {
		t.Fatalf("expected clean check, got %s", result.Status)
	}
	if monitor.IsTampered(ctx, "u1") {
		t.Error("expected tamper flag cleared after clean check")
	}
}
