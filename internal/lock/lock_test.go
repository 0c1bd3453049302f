package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, wait time.Duration) *Coordinator {
	t.Helper()
	c := NewCoordinator(wait, time.Minute)
	t.Cleanup(c.Stop)
	return c
}

func TestDoSerializesSameWallet(t *testing.T) {
	c := newTestCoordinator(t, time.Second)

	var (
		counter  int
		inside   int
		overlaps int
		wg       sync.WaitGroup
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Do(context.Background(), "wallet-a", func(context.Context) error {
				inside++
				if inside != 1 {
					overlaps++
				}
				counter++
				inside--
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 64, counter)
	require.Zero(t, overlaps)
}

func TestDoTimesOutWhenWalletIsHeld(t *testing.T) {
	c := newTestCoordinator(t, 30*time.Millisecond)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "wallet-a", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err := c.Do(context.Background(), "wallet-a", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrTimeout)

	close(release)
}

func TestDistinctWalletsDoNotContend(t *testing.T) {
	c := newTestCoordinator(t, 50*time.Millisecond)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "wallet-a", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	err := c.Do(context.Background(), "wallet-b", func(context.Context) error { return nil })
	require.NoError(t, err)
}

func TestLockReleasedWhenFnFails(t *testing.T) {
	c := newTestCoordinator(t, 50*time.Millisecond)

	boom := errors.New("boom")
	err := c.Do(context.Background(), "wallet-a", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	err = c.Do(context.Background(), "wallet-a", func(context.Context) error { return nil })
	require.NoError(t, err)
}

func TestDoHonoursContextCancellation(t *testing.T) {
	c := newTestCoordinator(t, time.Minute)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = c.Do(context.Background(), "wallet-a", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := c.Do(ctx, "wallet-a", func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoIgnoresEvictedEntries(t *testing.T) {
	c := newTestCoordinator(t, time.Second)

	stale := c.entry("wallet-a")
	c.mu.Lock()
	stale.lastUsed = time.Now().Add(-2 * time.Minute)
	c.mu.Unlock()
	c.evictIdle()
	require.False(t, c.current("wallet-a", stale))

	// A holder that slipped through the stale semaphore must not block the
	// wallet's live lock.
	stale.sem <- struct{}{}
	err := c.Do(context.Background(), "wallet-a", func(context.Context) error { return nil })
	require.NoError(t, err)
	require.True(t, c.current("wallet-a", c.entry("wallet-a")))
}

func TestDoSerializesAcrossEvictionChurn(t *testing.T) {
	c := NewCoordinator(time.Second, time.Millisecond)
	t.Cleanup(c.Stop)

	var (
		inside   int
		overlaps int
		wg       sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = c.Do(context.Background(), "wallet-a", func(context.Context) error {
					inside++
					if inside != 1 {
						overlaps++
					}
					inside--
					return nil
				})
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	require.Zero(t, overlaps)
}

func TestIdleEntriesAreEvicted(t *testing.T) {
	c := NewCoordinator(time.Second, 20*time.Millisecond)
	t.Cleanup(c.Stop)

	require.NoError(t, c.Do(context.Background(), "wallet-a", func(context.Context) error { return nil }))
	require.Equal(t, 1, c.Size())

	require.Eventually(t, func() bool {
		return c.Size() == 0
	}, time.Second, 10*time.Millisecond)
}
