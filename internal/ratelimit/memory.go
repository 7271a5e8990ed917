package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/smallbiznis/lis/internal/clock"
)

// memoryLimiter is the in-process fallback: a fixed window of burst requests per burst/rate seconds.
type memoryLimiter struct {
	mu      sync.Mutex
	clock   clock.Clock
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func newMemoryLimiter(c clock.Clock) *memoryLimiter {
	return &memoryLimiter{clock: c, windows: make(map[string]*window)}
}

func (m *memoryLimiter) Allow(key string, rate float64, burst int) *RateLimitResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	length := windowLength(rate, burst)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.start.Add(length)) {
		w = &window{start: now}
		m.windows[key] = w
		m.sweep(now, length)
	}

	reset := w.start.Add(length)
	if w.count >= burst {
		return &RateLimitResult{
			Allowed:    false,
			Limit:      burst,
			Remaining:  0,
			ResetTime:  reset,
			RetryAfter: reset.Sub(now),
		}
	}
	w.count++
	return &RateLimitResult{
		Allowed:   true,
		Limit:     burst,
		Remaining: burst - w.count,
		ResetTime: reset,
	}
}

// sweep drops expired windows so the map does not grow with every client IP.
func (m *memoryLimiter) sweep(now time.Time, length time.Duration) {
	if len(m.windows) < 1024 {
		return
	}
	for key, w := range m.windows {
		if !now.Before(w.start.Add(length)) {
			delete(m.windows, key)
		}
	}
}

func windowLength(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	return time.Duration(math.Ceil(float64(burst)/rate)) * time.Second
}
