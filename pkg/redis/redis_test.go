package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/paygate/pkg/redis"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestConnect(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://" + mr.Addr() + "/0",
		RetryAttempts:  1,
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, redis.Healthcheck(client)(context.Background()))

	_, err = redis.Connect(context.Background(), redis.Config{})
	require.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "://bad"})
	require.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)
}

func TestHealthcheckFails(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	mr.Close()
	err := redis.Healthcheck(client)(context.Background())
	require.ErrorIs(t, err, redis.ErrHealthcheckFailed)
}

func TestLocker(t *testing.T) {
	t.Parallel()

	t.Run("exclusive", func(t *testing.T) {
		t.Parallel()
		_, client := newClient(t)
		l := redis.NewLocker(client, "test:")
		ctx := context.Background()

		release, ok, err := l.TryAcquire(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = l.TryAcquire(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		release()

		release2, ok, err := l.TryAcquire(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		release2()
	})

	t.Run("stale release does not free new holder", func(t *testing.T) {
		t.Parallel()
		mr, client := newClient(t)
		l := redis.NewLocker(client, "test:")
		ctx := context.Background()

		release, ok, err := l.TryAcquire(ctx, "k", time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		mr.FastForward(2 * time.Second)

		_, ok, err = l.TryAcquire(ctx, "k", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		release()
		assert.True(t, mr.Exists("test:lock:k"))
	})

	t.Run("acquire honours context", func(t *testing.T) {
		t.Parallel()
		_, client := newClient(t)
		l := redis.NewLocker(client, "test:")

		release, err := l.Acquire(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		defer release()

		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
		defer cancel()
		_, err = l.Acquire(ctx, "k", time.Minute)
		require.ErrorIs(t, err, redis.ErrLockNotAcquired)
	})

	t.Run("serialises concurrent holders", func(t *testing.T) {
		t.Parallel()
		_, client := newClient(t)
		l := redis.NewLocker(client, "test:")

		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := l.Acquire(context.Background(), "k", time.Minute)
				if !assert.NoError(t, err) {
					return
				}
				n := inside.Add(1)
				if n > maxInside.Load() {
					maxInside.Store(n)
				}
				time.Sleep(10 * time.Millisecond)
				inside.Add(-1)
				release()
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), maxInside.Load())
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()
		_, client := newClient(t)
		_, _, err := redis.NewLocker(client, "").TryAcquire(context.Background(), "", time.Second)
		require.ErrorIs(t, err, redis.ErrEmptyKey)
	})
}

func TestDeduper(t *testing.T) {
	t.Parallel()

	mr, client := newClient(t)
	d := redis.NewDeduper(client, "test:", time.Hour)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, d.Mark(ctx, "evt-1"))

	seen, err = d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Hour)
	seen, err = d.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.Seen(ctx, "")
	require.NoError(t, err)
	assert.False(t, seen)
	require.ErrorIs(t, d.Mark(ctx, ""), redis.ErrEmptyKey)
}
