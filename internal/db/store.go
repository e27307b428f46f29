package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/paygate/pkg/pg"
	"github.com/dmitrymomot/paygate/pkg/subscription"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store implements subscription.Store on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

var _ subscription.Store = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("db: pool is required")
	}
	return &Store{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, provider_id, status, amount, currency,
	frequency, frequency_type, billing_cycle, start_date, end_date, next_billing_date,
	provider_updated_at, superseded_at, created_at, updated_at`

const planColumns = `id, name, description, monthly_price, yearly_price, benefits, limitations, active`

func scanSubscription(row scanner, extra ...any) (*subscription.Subscription, error) {
	var s subscription.Subscription
	dest := []any{
		&s.ID, &s.UserID, &s.PlanID, &s.ProviderID, &s.Status, &s.Amount, &s.Currency,
		&s.Frequency, &s.FrequencyType, &s.Cycle, &s.StartDate, &s.EndDate, &s.NextBillingDate,
		&s.ProviderUpdatedAt, &s.SupersededAt, &s.CreatedAt, &s.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanPlan(row scanner) (*subscription.Plan, error) {
	var p subscription.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.MonthlyPrice, &p.YearlyPrice,
		&p.Benefits, &p.Limitations, &p.Active); err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureUser inserts the user or refreshes its e-mail and name.
func (s *Store) EnsureUser(ctx context.Context, u subscription.User) error {
	if u.ID == "" {
		return subscription.ErrMissingUserID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, name) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = now()
		WHERE users.email IS DISTINCT FROM EXCLUDED.email OR users.name IS DISTINCT FROM EXCLUDED.name`,
		u.ID, u.Email, u.Name)
	return mapError("ensure user", err)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*subscription.User, error) {
	var u subscription.User
	err := s.pool.QueryRow(ctx, `SELECT id, email, name FROM users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrUserNotFound
		}
		return nil, mapError("get user", err)
	}
	return &u, nil
}

func (s *Store) GetPlan(ctx context.Context, planID string) (*subscription.Plan, error) {
	p, err := scanPlan(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, planID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrPlanNotFound
		}
		return nil, mapError("get plan", err)
	}
	return p, nil
}

func (s *Store) ListPlans(ctx context.Context, activeOnly bool) ([]subscription.Plan, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+planColumns+` FROM plans
		WHERE active OR NOT $1
		ORDER BY monthly_price, id`, activeOnly)
	if err != nil {
		return nil, mapError("list plans", err)
	}
	defer rows.Close()

	var plans []subscription.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, mapError("scan plan", err)
		}
		plans = append(plans, *p)
	}
	return plans, mapError("list plans", rows.Err())
}

func (s *Store) UpsertPlan(ctx context.Context, p subscription.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	benefits, limitations := p.Benefits, p.Limitations
	if benefits == nil {
		benefits = []string{}
	}
	if limitations == nil {
		limitations = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO plans (`+planColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			monthly_price = EXCLUDED.monthly_price,
			yearly_price = EXCLUDED.yearly_price,
			benefits = EXCLUDED.benefits,
			limitations = EXCLUDED.limitations,
			active = EXCLUDED.active,
			updated_at = now()`,
		p.ID, p.Name, p.Description, p.MonthlyPrice, p.YearlyPrice, benefits, limitations, p.Active)
	return mapError("upsert plan", err)
}

func (s *Store) GetByProviderID(ctx context.Context, providerID string) (*subscription.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE provider_id = $1`, providerID))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, mapError("get subscription", err)
	}
	return sub, nil
}

func (s *Store) CreateOrUpdate(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, bool, error) {
	return upsert(ctx, s.pool, sub)
}

// upsert inserts by provider_id or updates the mutable state of an existing
// row. User and plan linkage is only written on insert; superseded_at is
// owned by ActivateForUser.
func upsert(ctx context.Context, q querier, sub *subscription.Subscription) (*subscription.Subscription, bool, error) {
	if sub.ProviderID == "" {
		return nil, false, subscription.ErrMissingProviderID
	}
	id := sub.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	cycle := sub.Cycle
	if cycle == "" {
		cycle = subscription.Monthly
	}

	var created bool
	saved, err := scanSubscription(q.QueryRow(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, provider_id, status, amount, currency,
			frequency, frequency_type, billing_cycle, start_date, end_date, next_billing_date,
			provider_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (provider_id) DO UPDATE SET
			status = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			next_billing_date = EXCLUDED.next_billing_date,
			provider_updated_at = COALESCE(EXCLUDED.provider_updated_at, subscriptions.provider_updated_at),
			updated_at = now()
		RETURNING `+subscriptionColumns+`, (xmax = 0) AS inserted`,
		id, sub.UserID, sub.PlanID, sub.ProviderID, sub.Status, sub.Amount, sub.Currency,
		sub.Frequency, sub.FrequencyType, cycle, sub.StartDate, sub.EndDate, sub.NextBillingDate,
		sub.ProviderUpdatedAt,
	), &created)
	if err != nil {
		return nil, false, mapError("upsert subscription", err)
	}
	return saved, created, nil
}

func (s *Store) CancelActiveForUser(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET status = 'CANCELLED', updated_at = now()
		WHERE user_id = $1 AND status = 'ACTIVE'`, userID)
	if err != nil {
		return 0, mapError("cancel active subscriptions", err)
	}
	return tag.RowsAffected(), nil
}

// supersedeActive cancels the user's ACTIVE rows other than exceptProviderID,
// marks them superseded and returns their provider ids.
func supersedeActive(ctx context.Context, q querier, userID, exceptProviderID string) ([]string, error) {
	rows, err := q.Query(ctx, `
		UPDATE subscriptions SET status = 'CANCELLED', superseded_at = now(), updated_at = now()
		WHERE user_id = $1 AND status = 'ACTIVE' AND provider_id <> $2
		RETURNING provider_id`,
		userID, exceptProviderID)
	if err != nil {
		return nil, mapError("supersede active subscriptions", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError("supersede active subscriptions", err)
	}
	return ids, nil
}

// ActivateForUser cancels the owner's other ACTIVE subscriptions and upserts
// sub as ACTIVE in one transaction. A per-user advisory lock serialises
// concurrent activations for the same user.
func (s *Store) ActivateForUser(ctx context.Context, sub *subscription.Subscription) (*subscription.Activation, error) {
	if sub.ProviderID == "" {
		return nil, subscription.ErrMissingProviderID
	}

	act := &subscription.Activation{}
	err := pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		owner := sub.UserID
		err := tx.QueryRow(ctx, `SELECT user_id FROM subscriptions WHERE provider_id = $1`, sub.ProviderID).Scan(&owner)
		if err != nil && !pg.IsNotFoundError(err) {
			return mapError("lookup owner", err)
		}

		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, owner); err != nil {
			return mapError("advisory lock", err)
		}
		if act.Superseded, err = supersedeActive(ctx, tx, owner, sub.ProviderID); err != nil {
			return err
		}

		active := *sub
		active.Status = subscription.StatusActive
		act.Subscription, act.Created, err = upsert(ctx, tx, &active)
		return err
	})
	if err != nil {
		return nil, err
	}
	return act, nil
}

// FindActive mirrors Subscription.GrantsAccessAt.
func (s *Store) FindActive(ctx context.Context, userID string, now time.Time) (*subscription.Subscription, error) {
	sub, err := scanSubscription(s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE user_id = $1 AND status = 'ACTIVE' AND (end_date IS NULL OR end_date > $2)
		ORDER BY created_at DESC
		LIMIT 1`, userID, now))
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return nil, mapError("find active subscription", err)
	}
	return sub, nil
}

func (s *Store) ListExpiring(ctx context.Context, now time.Time, within time.Duration) ([]subscription.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE status = 'ACTIVE' AND end_date > $1 AND end_date <= $2
		ORDER BY end_date`, now, now.Add(within))
	if err != nil {
		return nil, mapError("list expiring", err)
	}
	defer rows.Close()

	var out []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, mapError("scan subscription", err)
		}
		out = append(out, *sub)
	}
	return out, mapError("list expiring", rows.Err())
}

func (s *Store) Stats(ctx context.Context) (subscription.Stats, error) {
	var st subscription.Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'ACTIVE'),
			count(*) FILTER (WHERE status = 'PENDING'),
			count(*) FILTER (WHERE status = 'CANCELLED')
		FROM subscriptions`).Scan(&st.Total, &st.Active, &st.Pending, &st.Cancelled)
	if err != nil {
		return subscription.Stats{}, mapError("subscription stats", err)
	}
	return st, nil
}
