package papersources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Wait(t *testing.T) {
	limiter := NewRateLimiter(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}

	// Burst of 1 at 20/s: the 2nd and 3rd waits take ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestRateLimiter_WaitContextCanceled(t *testing.T) {
	limiter := NewRateLimiter(0.1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}

func TestRateLimiter_AllowAndSetRate(t *testing.T) {
	limiter := NewRateLimiter(1, 2)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
	assert.Less(t, limiter.Tokens(), 1.0)

	limiter.SetRate(1000)
	time.Sleep(10 * time.Millisecond)
	assert.True(t, limiter.Allow())
}

func TestRateLimiter_Concurrency(t *testing.T) {
	limiter := NewRateLimiter(1000, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, limiter.Wait(ctx))
		}()
	}
	wg.Wait()
}

func TestSleep(t *testing.T) {
	t.Run("waits for the delay", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Sleep(context.Background(), 30*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)
	})

	t.Run("returns early when canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	})

	t.Run("zero delay returns immediately", func(t *testing.T) {
		assert.NoError(t, Sleep(context.Background(), 0))
	})
}
