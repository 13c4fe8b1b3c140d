package xmutex_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/henry701/MongoDistributedLocks/pkg/distributed/xmutex"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"acquire timeout", xmutex.ErrAcquireTimeout, "xmutex: acquire attempts exhausted"},
		{"lock released", xmutex.ErrLockReleased, "xmutex: lock already released"},
		{"nil store", xmutex.ErrNilStore, "xmutex: store is nil"},
		{"nil client", xmutex.ErrNilClient, "xmutex: client is nil"},
		{"nil collection", xmutex.ErrNilCollection, "xmutex: collection is nil"},
		{"nil context", xmutex.ErrNilContext, "xmutex: context must not be nil"},
		{"empty resource", xmutex.ErrEmptyResource, "xmutex: resource id must not be empty"},
		{"nil fn", xmutex.ErrNilFunc, "xmutex: fn is nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.want)
		})
	}
}

func TestProviderOptions_InvalidValuesIgnored(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	store := xmutex.NewMemoryStore(xmutex.WithMemoryClock(func() time.Time { return base }))

	// 非法选项值被忽略，Provider 回落到默认值
	p, err := xmutex.NewProvider(store,
		xmutex.WithDefaultExpiry(-time.Second),
		xmutex.WithDefaultRetryDelay(0),
		xmutex.WithDefaultMaxAttempts(-1),
		xmutex.WithLogger(nil),
		xmutex.WithClock(nil),
		xmutex.WithClock(func() time.Time { return base }),
	)
	require.NoError(t, err)

	handle, err := p.Acquire(ctx, "doc-1")
	require.NoError(t, err)
	defer func() { _ = handle.Release(ctx) }()

	assert.Equal(t, xmutex.DefaultKeyPrefix+"doc-1", handle.Key())

	exp, ok := store.ExpireAt(handle.Key())
	require.True(t, ok)
	assert.Equal(t, base.Add(xmutex.DefaultExpiry), exp)
}

func TestAcquireOptions_InvalidValuesIgnored(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	store := xmutex.NewMemoryStore(xmutex.WithMemoryClock(func() time.Time { return base }))

	p, err := xmutex.NewProvider(store,
		xmutex.WithDefaultExpiry(time.Minute),
		xmutex.WithClock(func() time.Time { return base }),
	)
	require.NoError(t, err)

	handle, err := p.Acquire(ctx, "doc-1",
		xmutex.WithExpiry(-time.Hour),
		xmutex.WithRetryDelay(0),
		xmutex.WithMaxAttempts(-5),
	)
	require.NoError(t, err)
	defer func() { _ = handle.Release(ctx) }()

	exp, ok := store.ExpireAt(handle.Key())
	require.True(t, ok)
	// 非法覆盖项被忽略，沿用 Provider 级默认值
	assert.Equal(t, base.Add(time.Minute), exp)
}

func TestWithKeyPrefix_EmptyAllowed(t *testing.T) {
	p, err := xmutex.NewProvider(xmutex.NewMemoryStore(), xmutex.WithKeyPrefix(""))
	require.NoError(t, err)
	assert.Equal(t, "doc-1", p.BuildLockKey("doc-1"))
}
