package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed delivery ids for a bounded time.
type Deduper struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewDeduper(client redis.UniversalClient, prefix string, ttl time.Duration) *Deduper {
	return &Deduper{client: client, prefix: prefix + "seen:", ttl: ttl}
}

// Seen reports whether id was marked and has not expired yet.
func (d *Deduper) Seen(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	_, err := d.client.Get(ctx, d.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark records id as processed.
func (d *Deduper) Mark(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyKey
	}
	return d.client.Set(ctx, d.prefix+id, time.Now().UTC().Format(time.RFC3339), d.ttl).Err()
}
