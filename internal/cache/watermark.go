package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

const watermarkTTL = 90 * 24 * time.Hour

// WatermarkStore keeps the high-water mark of each user's reported device
// clock and a sticky tamper flag. Redis is the primary backend so state
// survives restarts and is shared across instances; an in-memory map takes
// over whenever Redis is down, so integrity checks never fail because the
// cache did.
type WatermarkStore struct {
	cache *CacheService // nil means memory-only

	mu         sync.RWMutex
	watermarks map[string]time.Time
	tampered   map[string]bool
}

// NewWatermarkStore creates a store backed by the given cache service.
// Pass nil to run purely in memory.
func NewWatermarkStore(cache *CacheService) *WatermarkStore {
	return &WatermarkStore{
		cache:      cache,
		watermarks: make(map[string]time.Time),
		tampered:   make(map[string]bool),
	}
}

// Watermark returns the latest device time observed for the user, or a zero
// time when none has been recorded.
func (s *WatermarkStore) Watermark(ctx context.Context, userID string) time.Time {
	if s.cache != nil && s.cache.IsHealthy() {
		val, err := s.cache.Get(ctx, ClockWatermarkKey(userID))
		if err == nil {
			if nanos, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				return time.Unix(0, nanos)
			}
		} else if IsMiss(err) {
			return time.Time{}
		}
		// Infrastructure failure, fall through to memory
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermarks[userID]
}

// Advance raises the user's watermark to t if t is later than the stored
// value. The watermark never moves backward.
func (s *WatermarkStore) Advance(ctx context.Context, userID string, t time.Time) {
	s.mu.Lock()
	if t.After(s.watermarks[userID]) {
		s.watermarks[userID] = t
	}
	current := s.watermarks[userID]
	s.mu.Unlock()

	if s.cache != nil && s.cache.IsHealthy() {
		key := ClockWatermarkKey(userID)
		if val, err := s.cache.Get(ctx, key); err == nil {
			if nanos, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				stored := time.Unix(0, nanos)
				if stored.After(current) {
					return
				}
			}
		}
		_ = s.cache.Set(ctx, key, strconv.FormatInt(current.UnixNano(), 10), watermarkTTL)
	}
}

// MarkTampered raises the sticky tamper flag for the user.
func (s *WatermarkStore) MarkTampered(ctx context.Context, userID string) {
	s.mu.Lock()
	s.tampered[userID] = true
	s.mu.Unlock()

	if s.cache != nil && s.cache.IsHealthy() {
		_ = s.cache.Set(ctx, TamperFlagKey(userID), "1", watermarkTTL)
	}
}

// ClearTamper lowers the tamper flag, used after an operator review or a
// verified clock recovery.
func (s *WatermarkStore) ClearTamper(ctx context.Context, userID string) {
	s.mu.Lock()
	delete(s.tampered, userID)
	s.mu.Unlock()

	if s.cache != nil && s.cache.IsHealthy() {
		_ = s.cache.Delete(ctx, TamperFlagKey(userID))
	}
}

// IsTampered reports whether the user's tamper flag is raised.
func (s *WatermarkStore) IsTampered(ctx context.Context, userID string) bool {
	if s.cache != nil && s.cache.IsHealthy() {
		val, err := s.cache.Get(ctx, TamperFlagKey(userID))
		if err == nil {
			return val == "1"
		}
		if IsMiss(err) {
			return false
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tampered[userID]
}
