// Package integrity detects device-clock manipulation. Each check compares
// the reported device time against a monotonic per-user watermark and, when
// available, against a trusted reference clock. A failed check raises a
// sticky tamper flag that suspends the user's time-sensitive operations
// until a later check passes.
package integrity

import (
	"context"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/cache"
	"vertx-trading/internal/events"
	"vertx-trading/internal/logging"
)

// CheckStatus classifies the outcome of a time check.
type CheckStatus string

const (
	StatusOK               CheckStatus = "OK"
	StatusTamperedBackward CheckStatus = "TAMPERED_BACKWARD"
	StatusTamperedOffset   CheckStatus = "TAMPERED_OFFSET"
)

// TimeCheckResult is the outcome of a single integrity check.
type TimeCheckResult struct {
	Status     CheckStatus   `json:"status"`
	Tampered   bool          `json:"tampered"`
	DeviceTime time.Time     `json:"device_time"`
	ServerTime time.Time     `json:"server_time"`
	Offset     time.Duration `json:"offset"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Clock abstracts the reference time source so tests can inject one.
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// Monitor validates reported device times and maintains the tamper registry.
type Monitor struct {
	store     *cache.WatermarkStore
	probe     Clock
	bus       *events.EventBus
	logger    *logging.Logger
	tolerance time.Duration
}

// NewMonitor creates a monitor from configuration.
func NewMonitor(cfg config.IntegrityConfig, store *cache.WatermarkStore, bus *events.EventBus) *Monitor {
	return &Monitor{
		store:     store,
		probe:     NewClockProbe(cfg.ProbeURL, cfg.ProbeTimeout),
		bus:       bus,
		logger:    logging.WithComponent("integrity"),
		tolerance: cfg.Tolerance,
	}
}

// SetClock replaces the reference clock. Intended for tests.
func (m *Monitor) SetClock(c Clock) {
	m.probe = c
}

// Check validates the reported device time for a user.
//
// The device clock fails the check in two ways. Backward: the reported time
// sits more than the tolerance behind the user's watermark, meaning the clock
// was wound back past anything we have already seen. Offset: the reported
// time disagrees with the trusted reference clock by more than the tolerance
// in either direction. A probe failure never fails the check; without a
// reference there is no evidence of tampering.
func (m *Monitor) Check(ctx context.Context, userID string, deviceTime time.Time) TimeCheckResult {
	now := time.Now()
	result := TimeCheckResult{
		Status:     StatusOK,
		DeviceTime: deviceTime,
		ServerTime: now,
		CheckedAt:  now,
	}

	watermark := m.store.Watermark(ctx, userID)
	if !watermark.IsZero() && deviceTime.Before(watermark.Add(-m.tolerance)) {
		result.Status = StatusTamperedBackward
		result.Tampered = true
		result.Offset = deviceTime.Sub(watermark)
		m.flagTamper(ctx, userID, "device clock behind watermark")
		m.logger.WithField("user_id", userID).
			WithField("watermark", watermark.Format(time.RFC3339)).
			WithField("device_time", deviceTime.Format(time.RFC3339)).
			Warn("Clock tamper detected: backward movement")
		return result
	}

	ref, err := m.probe.Now(ctx)
	if err != nil {
		if err != ErrProbeDisabled {
			m.logger.WithError(err).Debug("Clock probe unavailable, failing open")
		}
	} else {
		offset := deviceTime.Sub(ref)
		result.ServerTime = ref
		result.Offset = offset
		if offset > m.tolerance || offset < -m.tolerance {
			result.Status = StatusTamperedOffset
			result.Tampered = true
			m.flagTamper(ctx, userID, "device clock offset beyond tolerance")
			m.logger.WithField("user_id", userID).
				WithField("offset", offset.String()).
				Warn("Clock tamper detected: offset beyond tolerance")
			return result
		}
	}

	m.store.Advance(ctx, userID, deviceTime)
	if m.store.IsTampered(ctx, userID) {
		m.store.ClearTamper(ctx, userID)
		m.bus.PublishTamperCleared(userID)
		m.logger.WithField("user_id", userID).Info("Tamper flag cleared after clean check")
	}

	return result
}

// IsTampered reports whether the user's tamper flag is currently raised.
func (m *Monitor) IsTampered(ctx context.Context, userID string) bool {
	return m.store.IsTampered(ctx, userID)
}

func (m *Monitor) flagTamper(ctx context.Context, userID, reason string) {
	m.store.MarkTampered(ctx, userID)
	m.bus.PublishTamperDetected(userID, reason)
}
