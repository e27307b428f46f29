package subscription

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrMissingUserID        = errors.New("user ID is required")
	ErrMissingProviderID    = errors.New("provider subscription ID is required")
	ErrMissingEmail         = errors.New("payer email is required")

	ErrInvalidReference  = errors.New("invalid subscription external reference")
	ErrInvalidPrice      = errors.New("invalid plan price")
	ErrInvalidCycle      = errors.New("invalid billing cycle")
	ErrInvalidPlan       = errors.New("invalid subscription plan configuration")
	ErrPlanInactive      = errors.New("subscription plan is not available")
	ErrAlreadySubscribed = errors.New("already subscribed to this plan")
	ErrActiveConflict    = errors.New("user already has an active subscription")

	ErrProviderError = errors.New("subscription provider error")
	ErrStoreError    = errors.New("subscription store error")
	ErrLockFailed    = errors.New("failed to acquire subscription lock")
	ErrLoadPlans     = errors.New("failed to load subscription plans")
)
