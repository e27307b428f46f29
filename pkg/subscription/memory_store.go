package subscription

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. It enforces the same constraints as the
// Postgres schema, including one ACTIVE subscription per user.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]User
	plans  map[string]Plan
	subs   map[string]*Subscription // by provider id
	writes int
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]User),
		plans: make(map[string]Plan),
		subs:  make(map[string]*Subscription),
		now:   time.Now,
	}
}

// AddUser registers a user.
func (m *MemoryStore) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// EnsureUser registers or refreshes a user.
func (m *MemoryStore) EnsureUser(_ context.Context, u User) error {
	if u.ID == "" {
		return ErrMissingUserID
	}
	m.AddUser(u)
	return nil
}

// Writes counts subscription mutations. Tests use it to assert that a
// request had no side effects.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Subscriptions returns copies of all rows for userID ("" for all), oldest first.
func (m *MemoryStore) Subscriptions(userID string) []Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if userID == "" || s.UserID == userID {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetPlan(_ context.Context, planID string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return clonePlan(p), nil
}

func (m *MemoryStore) ListPlans(_ context.Context, activeOnly bool) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		if activeOnly && !p.Active {
			continue
		}
		out = append(out, *clonePlan(p))
	}
	slices.SortFunc(out, func(a, b Plan) int {
		if c := a.MonthlyPrice.Cmp(b.MonthlyPrice); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (m *MemoryStore) UpsertPlan(_ context.Context, plan Plan) error {
	if err := validatePlan(plan); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = *clonePlan(plan)
	return nil
}

func (m *MemoryStore) GetByProviderID(_ context.Context, providerID string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subs[providerID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) CreateOrUpdate(_ context.Context, sub *Subscription) (*Subscription, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertLocked(sub)
}

func (m *MemoryStore) CancelActiveForUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.cancelActiveLocked(userID, "", false))), nil
}

func (m *MemoryStore) ActivateForUser(_ context.Context, sub *Subscription) (*Activation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.ProviderID == "" {
		return nil, ErrMissingProviderID
	}

	owner := sub.UserID
	if existing, ok := m.subs[sub.ProviderID]; ok {
		owner = existing.UserID
	}

	// Work on a snapshot so a failed upsert leaves cancellations unapplied.
	snapshot, writes := m.snapshotLocked(owner), m.writes
	superseded := m.cancelActiveLocked(owner, sub.ProviderID, true)

	active := *sub
	active.Status = StatusActive
	saved, created, err := m.upsertLocked(&active)
	if err != nil {
		m.restoreLocked(snapshot)
		m.writes = writes
		return nil, err
	}
	return &Activation{Subscription: saved, Created: created, Superseded: superseded}, nil
}

func (m *MemoryStore) FindActive(_ context.Context, userID string, now time.Time) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *Subscription
	for _, s := range m.subs {
		if s.UserID != userID || !s.GrantsAccessAt(now) {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			found = s
		}
	}
	if found == nil {
		return nil, ErrSubscriptionNotFound
	}
	cp := *found
	return &cp, nil
}

func (m *MemoryStore) ListExpiring(_ context.Context, now time.Time, within time.Duration) ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := now.Add(within)
	var out []Subscription
	for _, s := range m.subs {
		if s.Status != StatusActive || s.EndDate == nil {
			continue
		}
		if s.EndDate.After(now) && !s.EndDate.After(limit) {
			out = append(out, *s)
		}
	}
	slices.SortFunc(out, func(a, b Subscription) int { return a.EndDate.Compare(*b.EndDate) })
	return out, nil
}

func (m *MemoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var st Stats
	for _, s := range m.subs {
		st.Total++
		switch s.Status {
		case StatusActive:
			st.Active++
		case StatusPending:
			st.Pending++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	return st, nil
}

func (m *MemoryStore) upsertLocked(sub *Subscription) (*Subscription, bool, error) {
	if sub.ProviderID == "" {
		return nil, false, ErrMissingProviderID
	}
	now := m.now().UTC()

	if existing, ok := m.subs[sub.ProviderID]; ok {
		if sub.Status == StatusActive && existing.Status != StatusActive && m.hasOtherActiveLocked(existing.UserID, sub.ProviderID) {
			return nil, false, ErrActiveConflict
		}
		existing.Status = sub.Status
		existing.StartDate = cloneTime(sub.StartDate)
		existing.EndDate = cloneTime(sub.EndDate)
		existing.NextBillingDate = cloneTime(sub.NextBillingDate)
		if sub.ProviderUpdatedAt != nil {
			existing.ProviderUpdatedAt = cloneTime(sub.ProviderUpdatedAt)
		}
		existing.UpdatedAt = now
		m.writes++
		cp := *existing
		return &cp, false, nil
	}

	if err := m.checkRefsLocked(sub); err != nil {
		return nil, false, err
	}
	if sub.Status == StatusActive && m.hasOtherActiveLocked(sub.UserID, sub.ProviderID) {
		return nil, false, ErrActiveConflict
	}

	row := *sub
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.StartDate = cloneTime(sub.StartDate)
	row.EndDate = cloneTime(sub.EndDate)
	row.NextBillingDate = cloneTime(sub.NextBillingDate)
	row.ProviderUpdatedAt = cloneTime(sub.ProviderUpdatedAt)
	row.SupersededAt = nil
	row.CreatedAt = now
	row.UpdatedAt = now
	m.subs[row.ProviderID] = &row
	m.writes++
	cp := row
	return &cp, true, nil
}

func (m *MemoryStore) checkRefsLocked(sub *Subscription) error {
	if _, ok := m.users[sub.UserID]; !ok {
		return ErrUserNotFound
	}
	if _, ok := m.plans[sub.PlanID]; !ok {
		return ErrPlanNotFound
	}
	return nil
}

func (m *MemoryStore) hasOtherActiveLocked(userID, providerID string) bool {
	for _, s := range m.subs {
		if s.UserID == userID && s.ProviderID != providerID && s.Status == StatusActive {
			return true
		}
	}
	return false
}

// cancelActiveLocked cancels the user's ACTIVE rows except one and returns
// their provider ids. With supersede set the rows are also marked as replaced.
func (m *MemoryStore) cancelActiveLocked(userID, exceptProviderID string, supersede bool) []string {
	var ids []string
	now := m.now().UTC()
	for _, s := range m.subs {
		if s.UserID == userID && s.Status == StatusActive && s.ProviderID != exceptProviderID {
			s.Status = StatusCancelled
			s.UpdatedAt = now
			if supersede {
				s.SupersededAt = &now
			}
			ids = append(ids, s.ProviderID)
		}
	}
	if len(ids) > 0 {
		m.writes++
	}
	slices.Sort(ids)
	return ids
}

func (m *MemoryStore) snapshotLocked(userID string) map[string]Subscription {
	snap := make(map[string]Subscription)
	for id, s := range m.subs {
		if s.UserID == userID {
			snap[id] = *s
		}
	}
	return snap
}

func (m *MemoryStore) restoreLocked(snap map[string]Subscription) {
	for id, s := range snap {
		row := s
		m.subs[id] = &row
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func clonePlan(p Plan) *Plan {
	p.Benefits = slices.Clone(p.Benefits)
	p.Limitations = slices.Clone(p.Limitations)
	return &p
}
