package db

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/paygate/pkg/pg"
	"github.com/dmitrymomot/paygate/pkg/subscription"
)

const (
	constraintUserFK     = "subscriptions_user_id_fkey"
	constraintPlanFK     = "subscriptions_plan_id_fkey"
	constraintOneActive  = "subscriptions_one_active_per_user"
	constraintCycleCheck = "subscriptions_billing_cycle_check"
)

// mapError translates Postgres constraint violations into subscription errors.
// Anything unrecognised is wrapped with ErrStoreError.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case pg.IsForeignKeyViolationError(err):
		switch pg.ConstraintName(err) {
		case constraintUserFK:
			return subscription.ErrUserNotFound
		case constraintPlanFK:
			return subscription.ErrPlanNotFound
		}
	case pg.IsDuplicateKeyError(err):
		if pg.ConstraintName(err) == constraintOneActive {
			return subscription.ErrActiveConflict
		}
	case pg.IsCheckViolationError(err):
		if pg.ConstraintName(err) == constraintCycleCheck {
			return errors.Join(subscription.ErrInvalidCycle, err)
		}
	}
	return errors.Join(subscription.ErrStoreError, fmt.Errorf("%s: %w", op, err))
}
