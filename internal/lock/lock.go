// Package lock coordinates exclusive per-wallet access. A wallet is either
// unlocked or held by exactly one operation; distinct wallets never contend.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout indicates the lock wait exceeded the configured bound. The
// wallet was not touched.
var ErrTimeout = errors.New("wallet lock wait timed out")

type entry struct {
	// sem is a one-slot semaphore: a buffered send acquires the lock, a
	// receive releases it. Channels allow the acquisition to race against
	// the wait timer and context cancellation.
	sem      chan struct{}
	lastUsed time.Time
}

// Coordinator hands out per-wallet exclusive access with a bounded
// acquisition wait. Idle entries are evicted to keep the map from growing
// with every wallet ever seen.
type Coordinator struct {
	wait     time.Duration
	idleTTL  time.Duration
	mu       sync.Mutex
	entries  map[string]*entry
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCoordinator builds a coordinator whose Do calls wait at most wait for
// the lock. Entries idle longer than idleTTL are evicted.
func NewCoordinator(wait, idleTTL time.Duration) *Coordinator {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	c := &Coordinator{
		wait:    wait,
		idleTTL: idleTTL,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}
	go c.evictLoop()
	return c
}

// Do runs fn while holding the wallet's lock. The lock is released on every
// exit path, including fn returning an error or panicking. fn observes the
// most recently committed wallet state because every mutation routes through
// the same lock.
func (c *Coordinator) Do(ctx context.Context, walletID string, fn func(ctx context.Context) error) error {
	timer := time.NewTimer(c.wait)
	defer timer.Stop()

	for {
		e := c.entry(walletID)

		select {
		case e.sem <- struct{}{}:
		case <-timer.C:
			return ErrTimeout
		case <-ctx.Done():
			return ctx.Err()
		}

		// The janitor may have evicted this entry between the lookup and the
		// acquisition; a stale semaphore guards nothing, so take a fresh one.
		if !c.current(walletID, e) {
			<-e.sem
			continue
		}
		defer func() { <-e.sem }()

		return fn(ctx)
	}
}

// Size reports the number of tracked wallets. Exposed for tests and metrics.
func (c *Coordinator) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stop terminates the eviction loop.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Coordinator) current(walletID string, e *entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[walletID] == e
}

func (c *Coordinator) entry(walletID string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[walletID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		c.entries[walletID] = e
	}
	e.lastUsed = time.Now()
	return e
}

func (c *Coordinator) evictLoop() {
	ticker := time.NewTicker(c.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictIdle()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Coordinator) evictIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for id, e := range c.entries {
		if now.Sub(e.lastUsed) <= c.idleTTL {
			continue
		}
		// Only drop entries whose lock is free right now.
		select {
		case e.sem <- struct{}{}:
			<-e.sem
			delete(c.entries, id)
		default:
		}
	}
}
