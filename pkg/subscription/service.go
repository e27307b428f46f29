package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/paygate/pkg/correlation"
	"github.com/dmitrymomot/paygate/pkg/logger"
	"github.com/dmitrymomot/paygate/pkg/mercadopago"
)

// Service defines the public interface for subscription management.
type Service interface {
	// Webhook reconciliation
	HandleNotification(ctx context.Context, n mercadopago.Notification) (Outcome, error)
	Reconcile(ctx context.Context, providerID string) (Outcome, error)

	// Access
	HasActiveAccess(ctx context.Context, userID string) (bool, error)
	GetActiveSubscription(ctx context.Context, userID string) (*Subscription, error)
	CheckAccess(ctx context.Context, userID string) (AccessInfo, error)

	// Checkout and lifecycle
	CreateCheckoutLink(ctx context.Context, user User, planID string, cycle BillingCycle) (*CheckoutLink, error)
	CancelActiveForUser(ctx context.Context, userID string) (int64, error)

	// Catalog and reporting
	ListPlans(ctx context.Context) ([]Plan, error)
	SeedPlans(ctx context.Context, plans []Plan) error
	Stats(ctx context.Context) (Stats, error)
	ListExpiring(ctx context.Context, within time.Duration) ([]Subscription, error)
	RemindExpiring(ctx context.Context, within, window time.Duration) (int, error)
}

type service struct {
	store    Store
	provider Provider
	codec    KeyCodec
	log      *slog.Logger
	locker   Locker
	lockTTL  time.Duration
	deduper  Deduper
	notifier Notifier
	now      func() time.Time
	checkout CheckoutConfig
}

// NewService creates a Service. Panics if store, provider or codec is nil.
func NewService(store Store, provider Provider, codec KeyCodec, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: Store is required")
	}
	if provider == nil {
		panic("subscription: Provider is required")
	}
	if codec == nil {
		panic("subscription: KeyCodec is required")
	}

	s := &service{
		store:    store,
		provider: provider,
		codec:    codec,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		locker:   newLocalLocker(),
		lockTTL:  30 * time.Second,
		notifier: noopNotifier{},
		now:      time.Now,
		checkout: defaultCheckoutConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("subscription"))
	return s
}

// HandleNotification dispatches a webhook delivery by type. Deliveries that do
// not concern preapprovals are acknowledged with OutcomeIgnored.
func (s *service) HandleNotification(ctx context.Context, n mercadopago.Notification) (Outcome, error) {
	log := s.log.With(logger.Topic(n.Type), logger.SubscriptionID(n.DataID))

	if !n.IsSubscription() {
		log.InfoContext(ctx, "ignoring notification type")
		return OutcomeIgnored, nil
	}
	if n.DataID == "" {
		return "", ErrMissingProviderID
	}

	// Deliveries without a notification id are only protected by the
	// unchanged-state check in Reconcile.
	dedupeKey := n.DedupeKey()
	dedupe := s.deduper != nil && dedupeKey != ""
	if dedupe {
		seen, err := s.deduper.Seen(ctx, dedupeKey)
		if err != nil {
			log.WarnContext(ctx, "dedupe lookup failed, processing anyway", logger.Error(err))
		} else if seen {
			log.InfoContext(ctx, "duplicate notification")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := s.Reconcile(ctx, n.DataID)
	if err != nil {
		return "", err
	}

	if dedupe {
		if err := s.deduper.Mark(ctx, dedupeKey); err != nil {
			log.WarnContext(ctx, "failed to mark notification as processed", logger.Error(err))
		}
	}
	return outcome, nil
}

// Reconcile brings the local row in line with the provider's preapproval.
// The per-subscription lock is held across the provider fetch so that
// concurrent deliveries write snapshots in the order they were read.
func (s *service) Reconcile(ctx context.Context, providerID string) (Outcome, error) {
	if providerID == "" {
		return "", ErrMissingProviderID
	}
	log := s.log.With(logger.SubscriptionID(providerID))

	release, err := s.locker.Acquire(ctx, "preapproval:"+providerID, s.lockTTL)
	if err != nil {
		return "", errors.Join(ErrLockFailed, err)
	}
	defer release()

	pre, err := s.provider.GetPreapproval(ctx, providerID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrNotFound) {
			return "", errors.Join(ErrSubscriptionNotFound, err)
		}
		return "", errors.Join(ErrProviderError, err)
	}

	key, err := s.codec.Decode(pre.ExternalReference)
	if err != nil {
		return "", errors.Join(ErrInvalidReference, err)
	}

	incoming := fromPreapproval(pre, key)

	existing, err := s.store.GetByProviderID(ctx, providerID)
	switch {
	case errors.Is(err, ErrSubscriptionNotFound):
		existing = nil
	case err != nil:
		return "", errors.Join(ErrStoreError, err)
	}

	if existing != nil {
		if isOlder(incoming.ProviderUpdatedAt, existing.ProviderUpdatedAt) {
			log.InfoContext(ctx, "skipping stale preapproval snapshot",
				slog.Time("snapshot", *incoming.ProviderUpdatedAt),
				slog.Time("stored", *existing.ProviderUpdatedAt))
			return OutcomeStale, nil
		}
		if existing.SupersededAt != nil && incoming.Status != StatusCancelled {
			s.refuseSuperseded(ctx, log, *existing, pre.Status)
			return OutcomeSuperseded, nil
		}
		if existing.SameState(*incoming) {
			log.DebugContext(ctx, "subscription unchanged")
			return OutcomeUnchanged, nil
		}
		if existing.UserID != incoming.UserID || existing.PlanID != incoming.PlanID {
			log.WarnContext(ctx, "external reference does not match stored linkage, keeping stored",
				logger.UserID(existing.UserID), logger.PlanID(existing.PlanID))
		}
	}

	var (
		saved      *Subscription
		created    bool
		superseded []string
	)
	if incoming.Status == StatusActive && (existing == nil || existing.Status != StatusActive) {
		var act *Activation
		if act, err = s.store.ActivateForUser(ctx, incoming); err == nil {
			saved, created, superseded = act.Subscription, act.Created, act.Superseded
		}
	} else {
		saved, created, err = s.store.CreateOrUpdate(ctx, incoming)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrPlanNotFound) {
			return "", err
		}
		return "", errors.Join(ErrStoreError, err)
	}

	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	log.InfoContext(ctx, "subscription reconciled",
		logger.UserID(saved.UserID),
		logger.PlanID(saved.PlanID),
		logger.Status(string(saved.Status)),
		logger.Outcome(string(outcome)),
	)

	for _, id := range superseded {
		s.cancelAtProvider(ctx, id)
	}

	var prev Status
	if existing != nil {
		prev = existing.Status
	}
	s.notifyTransition(ctx, prev, *saved)
	return outcome, nil
}

// refuseSuperseded keeps a replaced subscription cancelled and makes sure the
// provider stops charging it.
func (s *service) refuseSuperseded(ctx context.Context, log *slog.Logger, sub Subscription, providerStatus string) {
	log.WarnContext(ctx, "ignoring activation of superseded subscription",
		logger.UserID(sub.UserID),
		logger.PlanID(sub.PlanID),
		logger.Status(providerStatus),
	)
	if providerStatus != mercadopago.StatusCancelled {
		s.cancelAtProvider(ctx, sub.ProviderID)
	}
}

// cancelAtProvider is best effort: a failure leaves the preapproval running
// at the provider, and its next notification retries the cancellation.
func (s *service) cancelAtProvider(ctx context.Context, providerID string) {
	if _, err := s.provider.CancelPreapproval(ctx, providerID); err != nil {
		s.log.ErrorContext(ctx, "failed to cancel superseded preapproval",
			logger.SubscriptionID(providerID), logger.Error(err))
		return
	}
	s.log.InfoContext(ctx, "cancelled superseded preapproval", logger.SubscriptionID(providerID))
}

func isOlder(snapshot, stored *time.Time) bool {
	return snapshot != nil && stored != nil && snapshot.Before(*stored)
}

func fromPreapproval(pre *mercadopago.Preapproval, key correlation.Key) *Subscription {
	sub := &Subscription{
		UserID:            key.UserID,
		PlanID:            key.PlanID,
		ProviderID:        pre.ID,
		Status:            MapProviderStatus(pre.Status),
		Amount:            pre.AutoRecurring.TransactionAmount,
		Currency:          pre.AutoRecurring.CurrencyID,
		Frequency:         pre.AutoRecurring.Frequency,
		FrequencyType:     pre.AutoRecurring.FrequencyType,
		Cycle:             key.Cycle,
		StartDate:         utc(pre.AutoRecurring.StartDate),
		EndDate:           utc(pre.AutoRecurring.EndDate),
		NextBillingDate:   utc(pre.NextPaymentDate),
		ProviderUpdatedAt: utc(pre.LastModified),
	}
	if sub.StartDate == nil {
		sub.StartDate = utc(pre.DateCreated)
	}
	return sub
}

func utc(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}

func (s *service) notifyTransition(ctx context.Context, prev Status, sub Subscription) {
	if prev == sub.Status {
		return
	}

	var send func(context.Context, User, Subscription, Plan) error
	switch sub.Status {
	case StatusActive:
		send = s.notifier.SubscriptionActivated
	case StatusCancelled:
		if prev == "" {
			return
		}
		send = s.notifier.SubscriptionCancelled
	default:
		return
	}

	user, plan, err := s.userAndPlan(ctx, sub)
	if err == nil {
		err = send(ctx, *user, sub, *plan)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "failed to send lifecycle notification",
			logger.SubscriptionID(sub.ProviderID), logger.Status(string(sub.Status)), logger.Error(err))
	}
}

func (s *service) userAndPlan(ctx context.Context, sub Subscription) (*User, *Plan, error) {
	user, err := s.store.GetUser(ctx, sub.UserID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return user, plan, nil
}

// GetActiveSubscription returns the subscription currently granting access,
// or ErrSubscriptionNotFound. Every access decision goes through here.
func (s *service) GetActiveSubscription(ctx context.Context, userID string) (*Subscription, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	sub, err := s.store.FindActive(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
		return nil, errors.Join(ErrStoreError, err)
	}
	return sub, nil
}

func (s *service) HasActiveAccess(ctx context.Context, userID string) (bool, error) {
	_, err := s.GetActiveSubscription(ctx, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrSubscriptionNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *service) CheckAccess(ctx context.Context, userID string) (AccessInfo, error) {
	sub, err := s.GetActiveSubscription(ctx, userID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return AccessInfo{}, nil
	}
	if err != nil {
		return AccessInfo{}, err
	}

	info := AccessInfo{HasAccess: true, Subscription: sub}
	if plan, err := s.store.GetPlan(ctx, sub.PlanID); err == nil {
		info.Plan = plan
	} else {
		s.log.WarnContext(ctx, "active subscription references missing plan",
			logger.PlanID(sub.PlanID), logger.Error(err))
	}
	return info, nil
}

// CreateCheckoutLink creates a pending preapproval for user and returns the
// payment URL. When the user already has the same plan active it returns
// ErrAlreadySubscribed together with a link to the provider's subscriptions
// page.
func (s *service) CreateCheckoutLink(ctx context.Context, user User, planID string, cycle BillingCycle) (*CheckoutLink, error) {
	if user.ID == "" {
		return nil, ErrMissingUserID
	}
	if cycle == "" {
		cycle = Monthly
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
	}

	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, ErrPlanInactive
	}
	price := plan.PriceFor(cycle)
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w for plan %s", ErrInvalidPrice, plan.ID)
	}

	active, err := s.GetActiveSubscription(ctx, user.ID)
	if err != nil && !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}
	if active != nil && active.PlanID == plan.ID {
		return &CheckoutLink{URL: s.checkout.SubscriptionsURL, ProviderID: active.ProviderID}, ErrAlreadySubscribed
	}

	payerEmail := user.Email
	if s.checkout.TestPayerEmail != "" {
		payerEmail = s.checkout.TestPayerEmail
	}
	if payerEmail == "" {
		return nil, ErrMissingEmail
	}

	ref, err := s.codec.Encode(correlation.Key{UserID: user.ID, PlanID: plan.ID, Cycle: cycle})
	if err != nil {
		return nil, errors.Join(ErrInvalidReference, err)
	}

	frequency, label := 1, "Mensual"
	if cycle == Yearly {
		frequency, label = 12, "Anual"
	}

	pre, err := s.provider.CreatePreapproval(ctx, mercadopago.CreatePreapprovalRequest{
		BackURL:           s.checkout.backURL(),
		Reason:            plan.Name + " - " + label,
		ExternalReference: ref,
		PayerEmail:        payerEmail,
		NotificationURL:   s.checkout.notificationURL(),
		Frequency:         frequency,
		FrequencyType:     mercadopago.FrequencyMonths,
		Amount:            price,
		CurrencyID:        s.checkout.Currency,
		IdempotencyKey:    uuid.NewString(),
	})
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	pending := &Subscription{
		UserID:        user.ID,
		PlanID:        plan.ID,
		ProviderID:    pre.ID,
		Status:        StatusPending,
		Amount:        price,
		Currency:      s.checkout.Currency,
		Frequency:     frequency,
		FrequencyType: mercadopago.FrequencyMonths,
		Cycle:         cycle,
		StartDate:     utc(pre.DateCreated),
	}
	if _, _, err := s.store.CreateOrUpdate(ctx, pending); err != nil {
		// The webhook creates the row if this write is lost.
		s.log.ErrorContext(ctx, "failed to persist pending subscription",
			logger.SubscriptionID(pre.ID), logger.UserID(user.ID), logger.Error(err))
	}

	s.log.InfoContext(ctx, "checkout created",
		logger.SubscriptionID(pre.ID),
		logger.UserID(user.ID),
		logger.PlanID(plan.ID),
		slog.String("cycle", string(cycle)),
	)
	return &CheckoutLink{URL: pre.CheckoutURL(s.checkout.Sandbox), ProviderID: pre.ID}, nil
}

func (s *service) CancelActiveForUser(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrMissingUserID
	}
	n, err := s.store.CancelActiveForUser(ctx, userID)
	if err != nil {
		return 0, errors.Join(ErrStoreError, err)
	}
	return n, nil
}

func (s *service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.store.ListPlans(ctx, true)
}

// SeedPlans upserts every plan in the catalog.
func (s *service) SeedPlans(ctx context.Context, plans []Plan) error {
	for _, p := range plans {
		if err := s.store.UpsertPlan(ctx, p); err != nil {
			return fmt.Errorf("seed plan %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *service) ListExpiring(ctx context.Context, within time.Duration) ([]Subscription, error) {
	return s.store.ListExpiring(ctx, s.now(), within)
}

// RemindExpiring notifies owners of subscriptions ending in
// [now+within-window, now+within]. Running it once per window sends each
// reminder once.
func (s *service) RemindExpiring(ctx context.Context, within, window time.Duration) (int, error) {
	now := s.now()
	subs, err := s.store.ListExpiring(ctx, now, within)
	if err != nil {
		return 0, errors.Join(ErrStoreError, err)
	}

	from := now.Add(within - window)
	sent := 0
	for _, sub := range subs {
		if sub.EndDate == nil || sub.EndDate.Before(from) {
			continue
		}
		user, plan, err := s.userAndPlan(ctx, sub)
		if err == nil {
			err = s.notifier.SubscriptionExpiring(ctx, *user, sub, *plan)
		}
		if err != nil {
			s.log.ErrorContext(ctx, "failed to send expiring reminder",
				logger.SubscriptionID(sub.ProviderID), logger.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}
