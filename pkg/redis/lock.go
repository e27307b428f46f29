package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an expired
// lock re-acquired by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultLockPoll = 50 * time.Millisecond

// Locker provides mutual exclusion across processes with SET NX PX.
type Locker struct {
	client redis.UniversalClient
	prefix string
	poll   time.Duration
}

// NewLocker creates a Locker. Keys are namespaced with prefix + "lock:".
func NewLocker(client redis.UniversalClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix + "lock:", poll: defaultLockPoll}
}

// TryAcquire makes a single attempt. The returned release func is nil when the
// lock is held elsewhere.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	token := uuid.NewString()
	full := l.prefix + key
	ok, err := l.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release must run even when the caller's ctx is already cancelled.
		_ = releaseScript.Run(context.Background(), l.client, []string{full}, token).Err()
	}
	return release, true, nil
}

// Acquire blocks until the lock is obtained or ctx is done.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		release, ok, err := l.TryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockNotAcquired, ctx.Err())
		case <-ticker.C:
		}
	}
}
