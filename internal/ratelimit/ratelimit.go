// Package ratelimit provides per-wallet admission control. Each wallet gets
// its own fixed-window limiter, created on first use; callers over the window
// capacity wait up to a configured bound for the window to roll over before
// being rejected.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited indicates the admission wait expired with no permit
// available. No state was touched; the caller may retry later.
var ErrRateLimited = errors.New("rate limit exceeded")

// Config controls the admission policy shared by all per-wallet limiters.
type Config struct {
	// Capacity is the number of permits per window.
	Capacity int
	// Period is the window length.
	Period time.Duration
	// Wait bounds how long Acquire blocks for a permit before failing.
	Wait time.Duration
	// IdleTTL controls eviction of limiters for wallets unseen for a while.
	IdleTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = 10
	}
	if c.Period <= 0 {
		c.Period = time.Minute
	}
	if c.Wait < 0 {
		c.Wait = 0
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 10 * time.Minute
	}
	return c
}

type limiter struct {
	mu       sync.Mutex
	used     int
	resetAt  time.Time
	lastSeen time.Time
	// evicted marks a limiter the janitor removed from the registry; callers
	// still holding the pointer must look the wallet up again.
	evicted bool
}

// Registry maps wallet identifiers to limiters. Entries are created at most
// once per identifier under concurrent access and evicted after IdleTTL.
type Registry struct {
	cfg      Config
	mu       sync.RWMutex
	limiters map[string]*limiter
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRegistry builds a registry and starts its eviction loop.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{
		cfg:      cfg.withDefaults(),
		limiters: make(map[string]*limiter),
		stopCh:   make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Acquire blocks until a permit for the wallet is available or the configured
// wait expires, whichever comes first. Context cancellation aborts the wait.
func (r *Registry) Acquire(ctx context.Context, walletID string) error {
	deadline := time.Now().Add(r.cfg.Wait)

	for {
		l := r.limiter(walletID)
		l.mu.Lock()
		if l.evicted {
			l.mu.Unlock()
			continue
		}
		now := time.Now()
		l.lastSeen = now
		if !now.Before(l.resetAt) {
			l.used = 0
			l.resetAt = now.Add(r.cfg.Period)
		}
		if l.used < r.cfg.Capacity {
			l.used++
			l.mu.Unlock()
			return nil
		}
		windowEnds := l.resetAt
		l.mu.Unlock()

		if !windowEnds.Before(deadline) {
			return ErrRateLimited
		}

		timer := time.NewTimer(time.Until(windowEnds))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Size reports the number of live limiters. Exposed for tests and metrics.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

// Stop terminates the eviction loop.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Registry) limiter(walletID string) *limiter {
	r.mu.RLock()
	l, ok := r.limiters[walletID]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have created the limiter between the two lock scopes.
	if l, ok := r.limiters[walletID]; ok {
		return l
	}
	l = &limiter{lastSeen: time.Now()}
	r.limiters[walletID] = l
	return l
}

func (r *Registry) evictLoop() {
	ticker := time.NewTicker(r.cfg.IdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, l := range r.limiters {
		l.mu.Lock()
		if now.Sub(l.lastSeen) > r.cfg.IdleTTL {
			l.evicted = true
			delete(r.limiters, id)
		}
		l.mu.Unlock()
	}
}
