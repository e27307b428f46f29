package subscription

import (
	"context"
	"time"
)

// Store persists users, plans and subscriptions.
type Store interface {
	// GetUser returns ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, userID string) (*User, error)
	// GetPlan returns ErrPlanNotFound for unknown ids.
	GetPlan(ctx context.Context, planID string) (*Plan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error)
	UpsertPlan(ctx context.Context, plan Plan) error

	// GetByProviderID returns ErrSubscriptionNotFound when no row exists.
	GetByProviderID(ctx context.Context, providerID string) (*Subscription, error)

	// CreateOrUpdate upserts by ProviderID. Creating requires the user and plan
	// to exist (ErrUserNotFound, ErrPlanNotFound). Updating changes only status,
	// start, end and next billing dates and the provider modification time;
	// user and plan linkage and the superseded marker never change.
	// The bool reports whether a row was created.
	CreateOrUpdate(ctx context.Context, sub *Subscription) (*Subscription, bool, error)

	// CancelActiveForUser moves every ACTIVE subscription of the user to
	// CANCELLED and returns how many rows changed.
	CancelActiveForUser(ctx context.Context, userID string) (int64, error)

	// ActivateForUser atomically cancels the owner's other ACTIVE subscriptions,
	// marking them superseded, and upserts sub as ACTIVE.
	ActivateForUser(ctx context.Context, sub *Subscription) (*Activation, error)

	// FindActive returns the subscription granting access at now, or
	// ErrSubscriptionNotFound.
	FindActive(ctx context.Context, userID string, now time.Time) (*Subscription, error)

	// ListExpiring returns ACTIVE subscriptions whose end date is in (now, now+within].
	ListExpiring(ctx context.Context, now time.Time, within time.Duration) ([]Subscription, error)

	Stats(ctx context.Context) (Stats, error)
}

// Activation is the result of Store.ActivateForUser.
type Activation struct {
	Subscription *Subscription
	Created      bool
	// Superseded lists the provider ids cancelled in favour of Subscription.
	Superseded []string
}
