// Package subscription reconciles MercadoPago preapprovals with locally stored
// subscriptions and answers whether a user currently has paid access.
//
// The Service is the only place that decides access: HasActiveAccess,
// GetActiveSubscription and CheckAccess all go through the store's FindActive,
// whose condition is Subscription.GrantsAccessAt (status ACTIVE and no end date
// or an end date in the future).
//
// Webhook processing is idempotent. The provider subscription id is the
// idempotency key: a redelivery whose status and dates match the stored row
// performs no write. Deliveries for the same provider id are serialised with a
// Locker, and activation cancels the user's other active subscriptions in the
// same store transaction (Store.ActivateForUser), so a user never has more
// than one ACTIVE subscription.
//
// Basic wiring:
//
//	codec, _ := correlation.NewCodec(secret)
//	svc := subscription.NewService(store, mpClient, codec,
//		subscription.WithLogger(log),
//		subscription.WithLocker(redis.NewLocker(rdb, "paygate:"), 30*time.Second),
//		subscription.WithDeduper(redis.NewDeduper(rdb, "paygate:", 72*time.Hour)),
//		subscription.WithNotifier(mailer),
//	)
//
//	outcome, err := svc.HandleNotification(ctx, notification)
//	ok, err := svc.HasActiveAccess(ctx, userID)
package subscription
