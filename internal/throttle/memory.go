package throttle

import (
	"context"
	"sync"
	"time"
)

type limiterEntry struct {
	lastAt      time.Time
	windowStart time.Time
	count       int
}

// MemoryLimiter is an in-process Limiter. State is lost on restart, which is
// acceptable for its use (resend-verification throttling).
type MemoryLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	cooldown  time.Duration
	window    time.Duration
	windowMax int
	now       func() time.Time
}

// NewMemoryLimiter constructs a limiter with the given cooldown between
// actions and cap per rolling window.
func NewMemoryLimiter(cooldown, window time.Duration, windowMax int) *MemoryLimiter {
	return &MemoryLimiter{
		entries:   make(map[string]*limiterEntry),
		cooldown:  cooldown,
		window:    window,
		windowMax: windowMax,
		now:       time.Now,
	}
}

// Reserve implements Limiter.
func (l *MemoryLimiter) Reserve(_ context.Context, key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{windowStart: now}
		l.entries[key] = entry
	}

	if wait := l.cooldown - now.Sub(entry.lastAt); !entry.lastAt.IsZero() && wait > 0 {
		return wait, nil
	}
	if now.Sub(entry.windowStart) > l.window {
		entry.windowStart = now
		entry.count = 0
	}
	if entry.count >= l.windowMax {
		return l.window - now.Sub(entry.windowStart), nil
	}

	entry.lastAt = now
	entry.count++
	return 0, nil
}

// MemoryOnceSet is an in-process OnceSet. A restart resets all state, so a
// key may be marked again afterwards; callers tolerate that.
type MemoryOnceSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryOnceSet constructs an empty set.
func NewMemoryOnceSet() *MemoryOnceSet {
	return &MemoryOnceSet{seen: make(map[string]struct{})}
}

// MarkOnce implements OnceSet.
func (s *MemoryOnceSet) MarkOnce(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}
