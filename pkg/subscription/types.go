package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/paygate/pkg/correlation"
)

// Status is the local subscription status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled:
		return true
	}
	return false
}

// BillingCycle is shared with the correlation key.
type BillingCycle = correlation.BillingCycle

const (
	Monthly = correlation.Monthly
	Yearly  = correlation.Yearly
)

// User is the subset of the identity record billing needs.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Plan is a catalog entry. Prices are in the checkout currency.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	YearlyPrice  decimal.Decimal `json:"yearly_price"`
	Benefits     []string        `json:"benefits"`
	Limitations  []string        `json:"limitations"`
	Active       bool            `json:"active"`
}

// PriceFor returns the price billed per cycle.
func (p Plan) PriceFor(cycle BillingCycle) decimal.Decimal {
	if cycle == Yearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// Subscription is the local record of a provider preapproval.
type Subscription struct {
	ID                uuid.UUID       `json:"id"`
	UserID            string          `json:"user_id"`
	PlanID            string          `json:"plan_id"`
	ProviderID        string          `json:"provider_id"`
	Status            Status          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Frequency         int             `json:"frequency"`
	FrequencyType     string          `json:"frequency_type"`
	Cycle             BillingCycle    `json:"billing_cycle"`
	StartDate         *time.Time      `json:"start_date,omitempty"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	NextBillingDate   *time.Time      `json:"next_billing_date,omitempty"`
	// ProviderUpdatedAt is the provider's last_modified of the stored snapshot.
	ProviderUpdatedAt *time.Time      `json:"provider_updated_at,omitempty"`
	// SupersededAt is set when a newer subscription of the same user replaced
	// this one. Superseded subscriptions never become ACTIVE again.
	SupersededAt      *time.Time      `json:"superseded_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// GrantsAccessAt reports whether the subscription gives paid access at now.
func (s Subscription) GrantsAccessAt(now time.Time) bool {
	return s.Status == StatusActive && (s.EndDate == nil || s.EndDate.After(now))
}

// SameState reports whether other carries the same mutable state. A webhook
// whose state matches the stored row is a redelivery.
func (s Subscription) SameState(other Subscription) bool {
	return s.Status == other.Status &&
		sameTime(s.StartDate, other.StartDate) &&
		sameTime(s.EndDate, other.EndDate) &&
		sameTime(s.NextBillingDate, other.NextBillingDate)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Stats aggregates subscription counts by status.
type Stats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Pending   int64 `json:"pending"`
	Cancelled int64 `json:"cancelled"`
}

// AccessInfo is the answer to "what does this user have right now".
type AccessInfo struct {
	HasAccess    bool          `json:"has_access"`
	Subscription *Subscription `json:"subscription"`
	Plan         *Plan         `json:"plan,omitempty"`
}

// CheckoutLink is where to send the user to finish (or manage) a subscription.
type CheckoutLink struct {
	URL        string
	ProviderID string
}

// Outcome describes what processing a notification did.
type Outcome string

const (
	OutcomeCreated    Outcome = "created"
	OutcomeUpdated    Outcome = "updated"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeIgnored    Outcome = "ignored"
	OutcomeDuplicate  Outcome = "duplicate"
	// OutcomeStale means the provider snapshot is older than the stored row.
	OutcomeStale      Outcome = "stale"
	// OutcomeSuperseded means an activation of a replaced subscription was refused.
	OutcomeSuperseded Outcome = "superseded"
)
