package revocation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_AddContains(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	ok, err := m.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := m.Add(ctx, Entry{TokenID: "a", RevokedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, added)

	ok, err = m.Contains(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	added, err = m.Add(ctx, Entry{TokenID: "a", RevokedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, added, "second add of a live entry must not claim it")
}

func TestMemory_ExpiredEntryIsAbsent(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	now := time.Now()
	m.now = func() time.Time { return now }

	_, err := m.Add(ctx, Entry{TokenID: "a", RevokedAt: now, ExpiresAt: now.Add(time.Minute)})
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	ok, err := m.Contains(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	added, err := m.Add(ctx, Entry{TokenID: "a", RevokedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, added, "stale entry is replaced")
}

func TestMemory_Sweep(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	_, _ = m.Add(ctx, Entry{TokenID: "old", ExpiresAt: now.Add(-time.Second)})
	_, _ = m.Add(ctx, Entry{TokenID: "edge", ExpiresAt: now})
	_, _ = m.Add(ctx, Entry{TokenID: "live", ExpiresAt: now.Add(time.Hour)})

	removed, err := m.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())

	ok, _ := m.Contains(ctx, "live")
	assert.True(t, ok)
}

func TestMemory_ConcurrentAddSingleWinner(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added, err := m.Add(ctx, Entry{TokenID: "shared", ExpiresAt: exp})
			if err == nil && added {
				wins.Add(1)
			}
			_, _ = m.Contains(ctx, "shared")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, _ = m.Add(ctx, Entry{TokenID: fmt.Sprint(i), ExpiresAt: now.Add(-time.Minute)})
	}

	done := make(chan struct{})
	s := &Sweeper{Registry: m, Interval: 5 * time.Millisecond}
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
