package subscription

import (
	"context"
	"time"
)

// Notifier is told about lifecycle transitions. Errors are logged by the
// service and never fail the transition.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, user User, sub Subscription, plan Plan) error
	SubscriptionCancelled(ctx context.Context, user User, sub Subscription, plan Plan) error
	SubscriptionExpiring(ctx context.Context, user User, sub Subscription, plan Plan) error
}

type noopNotifier struct{}

func (noopNotifier) SubscriptionActivated(context.Context, User, Subscription, Plan) error {
	return nil
}

func (noopNotifier) SubscriptionCancelled(context.Context, User, Subscription, Plan) error {
	return nil
}

func (noopNotifier) SubscriptionExpiring(context.Context, User, Subscription, Plan) error {
	return nil
}

// Locker serialises work on a key across processes. redis.Locker satisfies it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Deduper remembers processed webhook deliveries. redis.Deduper satisfies it.
type Deduper interface {
	Seen(ctx context.Context, id string) (bool, error)
	Mark(ctx context.Context, id string) error
}
