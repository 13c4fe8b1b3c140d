package lockopt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter_Snapshot(t *testing.T) {
	var c Counter

	c.IncAcquire()
	c.IncAcquire()
	c.IncContention()
	c.IncRelease()
	c.IncFailure()
	c.IncPing()
	c.IncPingError()

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.Acquires)
	assert.Equal(t, int64(1), snap.Contention)
	assert.Equal(t, int64(1), snap.Releases)
	assert.Equal(t, int64(1), snap.Failures)
	assert.Equal(t, int64(1), snap.Pings)
	assert.Equal(t, int64(1), snap.PingErrors)
}

func TestCounter_Concurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup

	const goroutines = 8
	const perGoroutine = 100
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				c.IncAcquire()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*perGoroutine), c.Snapshot().Acquires)
}

func TestApplyTimeout(t *testing.T) {
	t.Run("adds deadline when absent", func(t *testing.T) {
		ctx, cancel := ApplyTimeout(context.Background(), time.Minute)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
	})

	t.Run("keeps existing deadline", func(t *testing.T) {
		parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
		defer parentCancel()

		ctx, cancel := ApplyTimeout(parent, time.Minute)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
	})

	t.Run("zero timeout disables backstop", func(t *testing.T) {
		ctx, cancel := ApplyTimeout(context.Background(), 0)
		defer cancel()

		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})
}

func TestHealthContext(t *testing.T) {
	t.Run("uses given timeout", func(t *testing.T) {
		ctx, cancel := HealthContext(context.Background(), time.Minute)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
	})

	t.Run("falls back to default", func(t *testing.T) {
		ctx, cancel := HealthContext(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(DefaultHealthTimeout), deadline, time.Second)
	})
}
