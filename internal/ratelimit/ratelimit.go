// Package ratelimit provides a keyed token-bucket limiter.
// It supports non-blocking (Allow) and blocking (Wait) use, and forgets keys
// that have been idle for longer than the configured TTL.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused key keeps its bucket.
const DefaultIdleTTL = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// KeyedRateLimiter manages an independent token bucket per key.
type KeyedRateLimiter struct {
	mu      sync.RWMutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a keyed limiter allowing rps requests per second per key with
// the given burst, evicting keys idle for DefaultIdleTTL.
func New(rps float64, burst int) *KeyedRateLimiter {
	return NewWithIdleTTL(rps, burst, DefaultIdleTTL)
}

// NewWithIdleTTL is New with an explicit idle TTL. A TTL <= 0 disables eviction.
func NewWithIdleTTL(rps float64, burst int, idleTTL time.Duration) *KeyedRateLimiter {
	krl := &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if idleTTL > 0 {
		go krl.cleanup(idleTTL / 2)
	}
	return krl
}

// Allow reports whether a request for key may proceed now, without blocking.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	return krl.get(key).Allow()
}

// Wait blocks until a request for key is allowed or ctx is done.
func (krl *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	return krl.get(key).Wait(ctx)
}

func (krl *KeyedRateLimiter) get(key string) *rate.Limiter {
	now := krl.now().UnixNano()

	krl.mu.RLock()
	e, ok := krl.entries[key]
	krl.mu.RUnlock()
	if ok {
		e.lastSeen.Store(now)
		return e.limiter
	}

	krl.mu.Lock()
	defer krl.mu.Unlock()
	if e, ok = krl.entries[key]; !ok {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.entries[key] = e
	}
	e.lastSeen.Store(now)
	return e.limiter
}

// evictIdle drops every key not used since the TTL elapsed.
func (krl *KeyedRateLimiter) evictIdle() int {
	cutoff := krl.now().Add(-krl.idleTTL).UnixNano()

	krl.mu.Lock()
	defer krl.mu.Unlock()
	evicted := 0
	for key, e := range krl.entries {
		if e.lastSeen.Load() < cutoff {
			delete(krl.entries, key)
			evicted++
		}
	}
	return evicted
}

// Stop shuts down the eviction goroutine. Safe to call more than once.
func (krl *KeyedRateLimiter) Stop() {
	krl.stopOnce.Do(func() {
		close(krl.done)
	})
}

func (krl *KeyedRateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-krl.done:
			return
		case <-ticker.C:
			krl.evictIdle()
		}
	}
}
