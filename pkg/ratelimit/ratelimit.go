package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter counts attempts per (purpose, client key) pair over a fixed
// window. Implementations must be safe for concurrent use.
type Limiter interface {
	Check(ctx context.Context, purpose, clientKey string) (Result, error)
}

type bucket struct {
	windowStart time.Time
	count       int
}

// Memory is a process-local fixed-window limiter. Counts are exact within
// a single instance; separate instances do not coordinate.
type Memory struct {
	attempts int
	window   time.Duration
	now      func() time.Time

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time
}

// NewMemory returns an in-memory limiter allowing attempts per window.
func NewMemory(attempts int, window time.Duration) *Memory {
	return &Memory{
		attempts:    attempts,
		window:      window,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
		lastCleanup: time.Now(),
	}
}

// Check records one attempt and reports whether it is within budget. Every
// attempt counts against the window, including ones that later succeed.
func (m *Memory) Check(_ context.Context, purpose, clientKey string) (Result, error) {
	key := purpose + ":" + clientKey
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.Sub(b.windowStart) >= m.window {
		b = &bucket{windowStart: now}
		m.buckets[key] = b
	}
	b.count++

	m.maybeCleanup(now)

	if b.count > m.attempts {
		return Result{Allowed: false, RetryAfter: b.windowStart.Add(m.window).Sub(now)}, nil
	}
	return Result{Allowed: true}, nil
}

// maybeCleanup drops buckets whose window has lapsed so ephemeral keys do
// not accumulate. Caller must hold m.mu.
func (m *Memory) maybeCleanup(now time.Time) {
	if now.Sub(m.lastCleanup) < 10*m.window {
		return
	}
	m.lastCleanup = now
	for key, b := range m.buckets {
		if now.Sub(b.windowStart) >= m.window {
			delete(m.buckets, key)
		}
	}
}
