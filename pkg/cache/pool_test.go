package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, mr *miniredis.Miniredis, drain time.Duration) *Pool {
	t.Helper()

	p := NewPool(PoolConfig{
		URL:          "redis://" + mr.Addr(),
		PoolSize:     4,
		ProbeTimeout: time.Second,
		DrainTimeout: drain,
	}, zerolog.Nop())
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNewPool_Disabled(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "missing url", url: ""},
		{name: "malformed url", url: "://not-a-url"},
		{name: "wrong scheme", url: "http://localhost:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(PoolConfig{URL: tt.url}, zerolog.Nop())

			assert.False(t, p.Enabled())

			client, err := p.Acquire()
			assert.Nil(t, client)
			assert.Equal(t, KindConfigAbsent, KindOf(err))
			assert.Equal(t, KindConfigAbsent, KindOf(p.Probe(context.Background())))
			assert.NoError(t, p.Close())
		})
	}
}

func TestPool_AcquireAndProbe(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newTestPool(t, mr, 0)

	require.True(t, p.Enabled())

	client, err := p.Acquire()
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NoError(t, p.Probe(context.Background()))
}

func TestPool_ProbeUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newTestPool(t, mr, 0)
	mr.Close()

	err := p.Probe(context.Background())
	assert.Equal(t, KindConnectionFailed, KindOf(err))
	assert.True(t, p.Enabled(), "an outage must not disable the pool")
}

func TestPool_DisableEnable(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newTestPool(t, mr, 0)

	p.Disable()
	assert.False(t, p.Enabled())
	_, err := p.Acquire()
	assert.Equal(t, KindConfigAbsent, KindOf(err))

	// disabling twice is harmless
	p.Disable()
	assert.False(t, p.Enabled())

	p.Enable()
	assert.True(t, p.Enabled())
	assert.NoError(t, p.Probe(context.Background()))
}

func TestPool_ReinitializeReplacesClient(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newTestPool(t, mr, 0)

	first, err := p.Acquire()
	require.NoError(t, err)

	p.Reinitialize()

	second, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.NoError(t, p.Probe(context.Background()))

	// without a drain timeout the old client is closed right away
	assert.ErrorIs(t, first.Ping(context.Background()).Err(), redis.ErrClosed)
}

func TestPool_ReplacedClientDrains(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newTestPool(t, mr, 100*time.Millisecond)

	old, err := p.Acquire()
	require.NoError(t, err)

	p.Reinitialize()

	// in-flight users of the old snapshot keep working until the drain timeout
	assert.NoError(t, old.Ping(context.Background()).Err())

	assert.Eventually(t, func() bool {
		return old.Ping(context.Background()).Err() != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPool_Close(t *testing.T) {
	mr := miniredis.RunT(t)
	p := newTestPool(t, mr, time.Minute)

	client, err := p.Acquire()
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.False(t, p.Enabled())
	assert.ErrorIs(t, client.Ping(context.Background()).Err(), redis.ErrClosed)

	// closing a closed pool is a no-op
	assert.NoError(t, p.Close())
}
