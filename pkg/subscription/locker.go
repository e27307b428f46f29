package subscription

import (
	"context"
	"sync"
	"time"
)

// localLocker is the in-process Locker used when none is configured.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]chan struct{})}
}

func (l *localLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	for {
		l.mu.Lock()
		ch, held := l.locks[key]
		if !held {
			ch = make(chan struct{})
			l.locks[key] = ch
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}
